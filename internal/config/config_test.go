package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "hashsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func searchFlags() (*pflag.FlagSet, map[string]string) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("algorithm", "md5", "")
	fs.Int("workers", 0, "")
	fs.Duration("interval", 500*time.Millisecond, "")
	fs.Uint64("seed", 0, "")
	return fs, map[string]string{
		"algorithm": "search.algorithm",
		"workers":   "search.workers",
		"interval":  "search.interval",
		"seed":      "search.seed",
	}
}

func TestLoadDefaults(t *testing.T) {
	loaded, err := Load(Options{SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, Defaults(), loaded.Config)
	assert.Empty(t, loaded.File)
}

func TestLoadFileFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
search:
  algorithm: sha256
  workers: 6
  interval: 2s
  mode: random
  dedup: 128
server:
  addr: 0.0.0.0:9000
  allow_origins: [http://localhost:3000]
observability:
  logging:
    level: debug
`)

	loaded, err := Load(Options{SearchPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, path, loaded.File)
	assert.Equal(t, "sha256", loaded.Search.Algorithm)
	assert.Equal(t, 6, loaded.Search.Workers)
	assert.Equal(t, 2*time.Second, loaded.Search.Interval)
	assert.Equal(t, "random", loaded.Search.Mode)
	assert.Equal(t, 128, loaded.Search.Dedup)
	assert.Equal(t, "0.0.0.0:9000", loaded.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, loaded.Server.AllowOrigins)
	assert.Equal(t, 10*time.Second, loaded.Server.ShutdownTimeout)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
search:
  algorithm: sha1
  workers: 2
  interval: 1s
`)
	t.Setenv("HASHSEARCH_SEARCH_WORKERS", "3")
	t.Setenv("HASHSEARCH_SEARCH_SEED", "42")

	fs, keys := searchFlags()
	require.NoError(t, fs.Parse([]string{"--interval", "250ms"}))

	loaded, err := Load(Options{File: path, Flags: fs, FlagKeys: keys})
	require.NoError(t, err)

	assert.Equal(t, "sha1", loaded.Search.Algorithm, "file beats default and unset flag")
	assert.Equal(t, 3, loaded.Search.Workers, "env beats file")
	assert.Equal(t, uint64(42), loaded.Search.Seed)
	assert.Equal(t, 250*time.Millisecond, loaded.Search.Interval, "flag beats file")

	require.NoError(t, fs.Parse([]string{"--workers", "9"}))
	loaded, err = Load(Options{File: path, Flags: fs, FlagKeys: keys})
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Search.Workers, "flag beats env")
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "search: [unterminated")
	_, err := Load(Options{SearchPaths: []string{dir}})
	assert.Error(t, err)
}

func TestLoadUnknownFlag(t *testing.T) {
	fs, _ := searchFlags()
	_, err := Load(Options{SearchPaths: []string{t.TempDir()}, Flags: fs, FlagKeys: map[string]string{"nope": "search.nope"}})
	assert.Error(t, err)
}
