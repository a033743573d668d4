package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "downloads", cfg.DownloadsDir)
	assert.Equal(t, int64(500), cfg.PageSize)
	assert.Equal(t, 0, cfg.FetchLimit)
	assert.Equal(t, 30, cfg.AttachmentDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "mailsweep.log"), cfg.LogFile)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := "downloads_dir: /tmp/dl\npage_size: 100\nfetch_limit: 500\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/dl", cfg.DownloadsDir)
	assert.Equal(t, int64(100), cfg.PageSize)
	assert.Equal(t, 500, cfg.FetchLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Keys the file leaves out keep their defaults.
	assert.Equal(t, 30, cfg.AttachmentDays)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("page_size: 100\n"), 0o644))
	t.Setenv("MAILSWEEP_PAGE_SIZE", "42")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.PageSize)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("downloads_dir: [unclosed\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}
