package library

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Entry is one PDF in the textbook library.
type Entry struct {
	Path string // Relative to the library base path
	Size int
	SHA  string
}

// NewGitHubClient creates a GitHub client that waits out primary and
// secondary rate limits. An empty token gives an unauthenticated client.
func NewGitHubClient(token string) (*github.Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(rateLimiter)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client, nil
}

// GitHubLibrary lists and downloads textbook PDFs kept under a directory of
// a GitHub repository.
type GitHubLibrary struct {
	client   *github.Client
	download *http.Client
	owner    string
	repo     string
	basePath string
	maxBytes int64
}

// NewGitHubLibrary creates a library over owner/repo/basePath.
func NewGitHubLibrary(client *github.Client, owner, repo, basePath string) *GitHubLibrary {
	return &GitHubLibrary{
		client:   client,
		download: client.Client(),
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(basePath, "/"),
		maxBytes: DefaultMaxBytes,
	}
}

// String returns owner/repo/basePath.
func (l *GitHubLibrary) String() string {
	return path.Join(l.owner, l.repo, l.basePath)
}

// List recursively lists every PDF under the base path.
func (l *GitHubLibrary) List(ctx context.Context) ([]Entry, error) {
	return l.listRecursive(ctx, l.basePath, "")
}

func (l *GitHubLibrary) listRecursive(ctx context.Context, fullPath, relativePath string) ([]Entry, error) {
	_, dirContents, _, err := l.client.Repositories.GetContents(ctx, l.owner, l.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	var entries []Entry
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if strings.HasSuffix(strings.ToLower(*item.Name), ".pdf") {
				entries = append(entries, Entry{
					Path: itemRelPath,
					Size: item.GetSize(),
					SHA:  item.GetSHA(),
				})
			}

		case "dir":
			sub, err := l.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
		}
	}

	return entries, nil
}

// Fetch downloads one PDF by its path relative to the base path. Files too
// large for inline content are fetched from their download URL.
func (l *GitHubLibrary) Fetch(ctx context.Context, relativePath string) (*Document, error) {
	fullPath := path.Join(l.basePath, relativePath)

	fileContent, _, _, err := l.client.Repositories.GetContents(ctx, l.owner, l.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("%s is not a file", fullPath)
	}

	if content, err := fileContent.GetContent(); err == nil && content != "" {
		if !strings.HasPrefix(content, string(pdfMagic)) {
			return nil, fmt.Errorf("%s: %w", fullPath, ErrNotPDF)
		}
		return &Document{Name: relativePath, Data: []byte(content)}, nil
	}

	downloadURL := fileContent.GetDownloadURL()
	if downloadURL == "" {
		return nil, fmt.Errorf("no download link for %s", fullPath)
	}
	doc, err := FetchURL(ctx, l.download, downloadURL, l.maxBytes)
	if err != nil {
		return nil, err
	}
	doc.Name = relativePath
	return doc, nil
}

// Revision returns the SHA of the latest commit touching the base path.
func (l *GitHubLibrary) Revision(ctx context.Context) (string, error) {
	commits, _, err := l.client.Repositories.ListCommits(ctx, l.owner, l.repo, &github.CommitsListOptions{
		Path: l.basePath,
		ListOptions: github.ListOptions{
			PerPage: 1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", l.basePath)
	}

	return *commits[0].SHA, nil
}
