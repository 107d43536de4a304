package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsalman850/co-teachers-sub003/internal/config"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", preview("short\n  text", 20))
	assert.Equal(t, "abcde...", preview("abcdefgh", 5))
	assert.Equal(t, "héllo...", preview("héllo wörld", 5))
}

func TestPages(t *testing.T) {
	assert.Equal(t, "p.3", pages(3, 3))
	assert.Equal(t, "pp.3-4", pages(3, 4))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tutor.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Wrote")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Chunker, cfg.Chunker)
}
