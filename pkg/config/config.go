// Package config loads go-tours settings with Viper from a YAML file,
// GOTOURS_* environment variables and command-line flags, in increasing
// order of precedence.
//
// Environment variables follow the GOTOURS_<SECTION>_<OPTION> pattern, for
// example GOTOURS_SERVER_ADDR or GOTOURS_ADMIN_PASSWORD_HASH. The config
// file is taken from --config, then GOTOURS_CONFIG_FILE, then .go-tours.yml
// in the working directory.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix prefixes every environment variable
const EnvPrefix = "GOTOURS"

// DefaultFile is the config file looked up in the working directory
const DefaultFile = ".go-tours.yml"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Site    SiteConfig    `mapstructure:"site"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	BaseURL         string        `mapstructure:"base_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustProxy honours X-Forwarded-For when rate limiting
	TrustProxy bool `mapstructure:"trust_proxy"`
	Metrics    bool `mapstructure:"metrics"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
	// BackgroundSave checkpoints dirty collections on this interval; 0
	// disables it
	BackgroundSave  time.Duration `mapstructure:"background_save"`
	TransactionSave bool          `mapstructure:"transaction_save"`
	Journal         bool          `mapstructure:"journal"`
	JournalSync     bool          `mapstructure:"journal_sync"`
}

type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	// LoginRate is the number of login attempts allowed per minute per IP
	LoginRate    float64 `mapstructure:"login_rate"`
	LoginBurst   int     `mapstructure:"login_burst"`
	MaxUploadMB  int64   `mapstructure:"max_upload_mb"`
	SecureCookie bool    `mapstructure:"secure_cookie"`
}

type SiteConfig struct {
	TemplatesDir string `mapstructure:"templates_dir"`
	StaticDir    string `mapstructure:"static_dir"`
	Dev          bool   `mapstructure:"dev"`
	CacheSize    int    `mapstructure:"cache_size"`
	// ContactRate is the number of contact posts allowed per minute per IP
	ContactRate  float64 `mapstructure:"contact_rate"`
	ContactBurst int     `mapstructure:"contact_burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

// SetDefaults registers every key with its default. Keys must be known to
// Viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.metrics", true)

	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.background_save", 5*time.Minute)
	v.SetDefault("storage.transaction_save", false)
	v.SetDefault("storage.journal", true)
	v.SetDefault("storage.journal_sync", false)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.session_ttl", 12*time.Hour)
	v.SetDefault("admin.login_rate", 5)
	v.SetDefault("admin.login_burst", 5)
	v.SetDefault("admin.max_upload_mb", 50)
	v.SetDefault("admin.secure_cookie", false)

	v.SetDefault("site.templates_dir", "")
	v.SetDefault("site.static_dir", "")
	v.SetDefault("site.dev", false)
	v.SetDefault("site.cache_size", 256)
	v.SetDefault("site.contact_rate", 2)
	v.SetDefault("site.contact_burst", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)
}

// Init prepares v: defaults, environment binding and the config file.
// file is the --config flag value. A missing default file is not an error;
// a missing explicit one is.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := true
	switch {
	case file != "":
		v.SetConfigFile(file)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		explicit = false
		v.SetConfigFile(DefaultFile)
	}
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Decode unmarshals the configuration held by v without validating it.
// Offline commands that only touch storage use it with
// StorageConfig.Validate.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Admin.validate(); err != nil {
		return fmt.Errorf("admin config: %w", err)
	}
	if c.Site.CacheSize < 0 {
		return errors.New("site config: cache_size must not be negative")
	}
	if c.Site.ContactRate < 0 || c.Site.ContactBurst < 0 {
		return errors.New("site config: contact_rate and contact_burst must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

func (s ServerConfig) validate() error {
	_, portStr, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("addr %q: %w", s.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("port %q is not in valid range 0-65535", portStr)
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute http(s) URL", s.BaseURL)
	}
	for name, d := range map[string]time.Duration{
		"read_timeout":     s.ReadTimeout,
		"write_timeout":    s.WriteTimeout,
		"idle_timeout":     s.IdleTimeout,
		"shutdown_timeout": s.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Validate checks the storage section on its own
func (s StorageConfig) Validate() error {
	if strings.TrimSpace(s.DataDir) == "" {
		return errors.New("storage config: data_dir is required")
	}
	if s.BackgroundSave < 0 {
		return errors.New("storage config: background_save must not be negative")
	}
	return nil
}

func (a AdminConfig) validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return errors.New("username is required")
	}
	if a.PasswordHash == "" {
		return errors.New("password_hash is required (create one with `go-tours hash-password`)")
	}
	if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err != nil {
		return fmt.Errorf("password_hash is not a bcrypt hash: %w", err)
	}
	if a.SessionTTL < time.Minute {
		return errors.New("session_ttl must be at least a minute")
	}
	if a.MaxUploadMB < 1 {
		return errors.New("max_upload_mb must be at least 1")
	}
	return nil
}

// MediaDir is where uploads are stored
func (c *Config) MediaDir() string {
	return filepath.Join(c.Storage.DataDir, "media")
}

// NewLogger builds the process logger: JSON in production, console output
// in dev mode
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
