package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adfharrison1/go-tours/pkg/config"
)

func testHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "go-tours.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("admin.password_hash", testHash(t))
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, 5*time.Minute, cfg.Storage.BackgroundSave)
	assert.True(t, cfg.Storage.Journal)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, 12*time.Hour, cfg.Admin.SessionTTL)
	assert.Equal(t, float64(5), cfg.Admin.LoginRate)
	assert.Equal(t, int64(50), cfg.Admin.MaxUploadMB)
	assert.Equal(t, 256, cfg.Site.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join("./data", "media"), cfg.MediaDir())
}

func TestInit_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	hash := testHash(t)
	path := writeConfig(t, dir, `
server:
  addr: "127.0.0.1:9090"
  base_url: "https://tours.example.com"
  read_timeout: 5s
storage:
  data_dir: "`+filepath.ToSlash(filepath.Join(dir, "data"))+`"
  background_save: 1m
admin:
  username: editor
  password_hash: "`+hash+`"
site:
  cache_size: 16
log:
  level: debug
`)
	t.Setenv("GOTOURS_SITE_CACHE_SIZE", "32")
	t.Setenv("GOTOURS_ADMIN_SESSION_TTL", "2h")

	v := viper.New()
	require.NoError(t, config.Init(v, path))
	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "https://tours.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.Storage.BackgroundSave)
	assert.Equal(t, "editor", cfg.Admin.Username)
	assert.Equal(t, hash, cfg.Admin.PasswordHash)
	assert.Equal(t, 2*time.Hour, cfg.Admin.SessionTTL, "env overrides file")
	assert.Equal(t, 32, cfg.Site.CacheSize, "env overrides file")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInit_ConfigFileFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server:\n  addr: \":7070\"\n")
	t.Setenv("GOTOURS_CONFIG_FILE", path)

	v := viper.New()
	require.NoError(t, config.Init(v, ""))
	assert.Equal(t, ":7070", v.GetString("server.addr"))
}

func TestInit_MissingFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOTOURS_CONFIG_FILE", "")

	require.NoError(t, config.Init(viper.New(), ""), "the default file is optional")

	err := config.Init(viper.New(), filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err, "an explicit file must exist")
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestInit_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GOTOURS_CONFIG_FILE", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte("log:\n  level: warn\n"), 0o644))

	v := viper.New()
	require.NoError(t, config.Init(v, ""))
	assert.Equal(t, "warn", v.GetString("log.level"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"port out of range", func(c *config.Config) { c.Server.Addr = ":70000" }, "valid range"},
		{"port not numeric", func(c *config.Config) { c.Server.Addr = ":http-alt" }, "valid range"},
		{"addr without port", func(c *config.Config) { c.Server.Addr = "localhost" }, "addr"},
		{"relative base url", func(c *config.Config) { c.Server.BaseURL = "/tours" }, "base_url"},
		{"ftp base url", func(c *config.Config) { c.Server.BaseURL = "ftp://example.com" }, "base_url"},
		{"negative timeout", func(c *config.Config) { c.Server.WriteTimeout = -time.Second }, "write_timeout"},
		{"empty data dir", func(c *config.Config) { c.Storage.DataDir = "  " }, "data_dir"},
		{"negative background save", func(c *config.Config) { c.Storage.BackgroundSave = -1 }, "background_save"},
		{"missing username", func(c *config.Config) { c.Admin.Username = "" }, "username"},
		{"missing password hash", func(c *config.Config) { c.Admin.PasswordHash = "" }, "hash-password"},
		{"plain text password", func(c *config.Config) { c.Admin.PasswordHash = "hunter2" }, "bcrypt"},
		{"short session ttl", func(c *config.Config) { c.Admin.SessionTTL = time.Second }, "session_ttl"},
		{"zero upload limit", func(c *config.Config) { c.Admin.MaxUploadMB = 0 }, "max_upload_mb"},
		{"negative cache", func(c *config.Config) { c.Site.CacheSize = -1 }, "cache_size"},
		{"negative contact rate", func(c *config.Config) { c.Site.ContactRate = -1 }, "contact_rate"},
		{"unknown log level", func(c *config.Config) { c.Log.Level = "loud" }, "log config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RejectsMissingCredentials(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	_, err := config.Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LogConfig{Level: "debug", Dev: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = config.NewLogger(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0))

	_, err = config.NewLogger(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
