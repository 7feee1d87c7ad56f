package newsapi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("NEWSAPI_ADMIN__PASSWORD", "secret")
	t.Setenv("NEWSAPI_ADMIN__SESSION_SECRET", "session-secret")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.Admin.Password)

	require.Equal(t, ":3000", cfg.Server.Addr)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "sql", cfg.Settings.Backend)
	require.Equal(t, "/api/news", cfg.News.Route)
	require.Equal(t, "news", cfg.News.NodeType)
	require.Equal(t, "http://retest.com", cfg.News.ImageHost)
	require.Equal(t, "/sites/default/files", cfg.Files.URLPath)
	require.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsapi.yaml")
	yml := `
server:
  addr: ":8080"
  read_timeout: 3s
news:
  image_host: "https://cdn.example.com"
  timezone: "Europe/Berlin"
admin:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("NEWSAPI_SERVER__ADDR", ":9090")
	t.Setenv("NEWSAPI_DATABASE__DSN", filepath.Join(dir, "news.db"))
	t.Setenv("NEWSAPI_METRICS__ENABLED", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Server.Addr, "env overrides file")
	require.Equal(t, 3*time.Second, cfg.Server.ReadTimeout, "file overrides defaults")
	require.Equal(t, "https://cdn.example.com", cfg.News.ImageHost)
	require.Equal(t, "Europe/Berlin", cfg.News.Location().String())
	require.Equal(t, filepath.Join(dir, "news.db"), cfg.Database.DSN)
	require.False(t, cfg.Metrics.Enabled)
	require.False(t, cfg.Admin.Enabled)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Admin.Password = "secret"
	valid.Admin.SessionSecret = "session-secret"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"redis without addr", func(c *Config) { c.Settings.Backend = "redis" }},
		{"relative route", func(c *Config) { c.News.Route = "api/news" }},
		{"bad timezone", func(c *Config) { c.News.Timezone = "Mars/Olympus" }},
		{"admin without password", func(c *Config) { c.Admin.Password = "" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestNewsConfigLocationFallback(t *testing.T) {
	require.Equal(t, time.UTC, NewsConfig{Timezone: "Nowhere/Land"}.Location())
}
