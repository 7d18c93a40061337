package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvDB, "")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	require.Equal(t, 30*time.Second, cfg.API.Timeout)
	require.Equal(t, []string{"xiaohongshu"}, cfg.Defaults.Platforms)
	require.Equal(t, "/tmp/xdg-data/autopub/autopub.db", cfg.Storage.Path)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base-url: http://backend:9000
  api-key: from-file
  long-timeout: 90s
defaults:
  platforms: [douyin, xiaohongshu]
  font-color: white
`), 0o600))
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvAPIKey, "from-env")
	t.Setenv(EnvDB, "/var/lib/autopub.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://backend:9000", cfg.API.BaseURL)
	require.Equal(t, "from-env", cfg.API.APIKey)
	require.Equal(t, 90*time.Second, cfg.API.LongTimeout)
	require.Equal(t, 30*time.Second, cfg.API.Timeout)
	require.Equal(t, []string{"douyin", "xiaohongshu"}, cfg.Defaults.Platforms)
	require.Equal(t, "white", cfg.Defaults.FontColor)
	require.Equal(t, "/var/lib/autopub.db", cfg.Storage.Path)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"relative url": func(c *Config) { c.API.BaseURL = "backend:8000/x" },
		"font color":   func(c *Config) { c.Defaults.FontColor = "red" },
		"platform":     func(c *Config) { c.Defaults.Platforms = []string{"weibo"} },
		"timeout":      func(c *Config) { c.API.Timeout = -time.Second },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		require.Error(t, cfg.Validate(), name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvDB, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.API.APIKey = "secret"
	cfg.Defaults.Platforms = []string{"douyin"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
