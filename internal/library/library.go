// Package library locates textbook PDFs on disk, over HTTP or in a GitHub
// repository and returns their bytes.
package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxBytes bounds a downloaded textbook.
const DefaultMaxBytes = 200 << 20

// LibraryPrefix marks a reference into the GitHub textbook library,
// e.g. "library:grade7/science.pdf".
const LibraryPrefix = "library:"

var pdfMagic = []byte("%PDF-")

// Document is a textbook PDF and the name it was found under.
type Document struct {
	Name string
	Data []byte
}

// ReadFile reads a PDF from disk.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotPDF)
	}
	return &Document{Name: filepath.Base(path), Data: data}, nil
}

// FetchURL downloads a PDF. maxBytes <= 0 uses DefaultMaxBytes; a nil
// client uses one with a two minute timeout.
func FetchURL(ctx context.Context, client *http.Client, url string, maxBytes int64) (*Document, error) {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", url, ErrTooLarge, maxBytes)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%s: %w", url, ErrNotPDF)
	}

	name := url
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		name = url[i+1:]
	}
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return &Document{Name: name, Data: data}, nil
}

// Resolver turns a textbook reference into a Document.
type Resolver struct {
	HTTP     *http.Client
	Library  *GitHubLibrary // nil disables library references
	MaxBytes int64
}

// Resolve accepts an http(s) URL, a "library:" path or a local file path.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Document, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return FetchURL(ctx, r.HTTP, ref, r.MaxBytes)
	case strings.HasPrefix(ref, LibraryPrefix):
		if r.Library == nil {
			return nil, ErrNoLibrary
		}
		return r.Library.Fetch(ctx, strings.TrimPrefix(ref, LibraryPrefix))
	default:
		return ReadFile(ref)
	}
}
