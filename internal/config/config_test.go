package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "plugins", cfg.PluginDir)
	assert.Equal(t, "assetkit.db", cfg.DatabasePath)
	assert.Equal(t, "asset-inventory", cfg.FileBaseName)
	assert.Equal(t, 15*time.Second, cfg.PrintCleanupDelay)
	assert.Equal(t, 2, cfg.SnipeIT.StatusID)
	assert.Equal(t, 1, cfg.SnipeIT.CategoryID)
	assert.Equal(t, 2*time.Second, cfg.Diagnostics.ProbeTimeout)
	assert.False(t, cfg.UI.Plain)
	assert.Equal(t, 24*time.Hour, cfg.Agent.Interval)
	assert.False(t, cfg.Agent.Sync)
}

func TestLoadFileAndEnv(t *testing.T) {
	viper.Reset()
	path := filepath.Join(t.TempDir(), "assetkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plugin_dir: /opt/assetkit/plugins
header: Finance, floor 3
print_cleanup_delay: 1m
snipeit:
  internal_url: http://snipe.lan
  status_id: 4
ui:
  plain: true
`), 0o644))
	t.Setenv("ASSETKIT_SNIPEIT_EXTERNAL_URL", "https://snipe.example.com")
	t.Setenv("ASSETKIT_DATABASE", "/var/lib/assetkit.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/assetkit/plugins", cfg.PluginDir)
	assert.Equal(t, "Finance, floor 3", cfg.Header)
	assert.Equal(t, time.Minute, cfg.PrintCleanupDelay)
	assert.Equal(t, "http://snipe.lan", cfg.SnipeIT.InternalURL)
	assert.Equal(t, "https://snipe.example.com", cfg.SnipeIT.ExternalURL)
	assert.Equal(t, 4, cfg.SnipeIT.StatusID)
	assert.Equal(t, "/var/lib/assetkit.db", cfg.DatabasePath)
	assert.True(t, cfg.UI.Plain)
	assert.Equal(t, path, Used())
}

func TestLoadMissingNamedFile(t *testing.T) {
	viper.Reset()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
