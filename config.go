package newsapi

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

const (
	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv = "NEWSAPI_CONFIG"
	// EnvPrefix is stripped from environment keys; "__" separates sections,
	// so NEWSAPI_NEWS__IMAGE_HOST sets news.image_host.
	EnvPrefix = "NEWSAPI_"

	defaultConfigPath = "config.yaml"
)

// Config holds all configuration for a newsapi server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Settings SettingsConfig `koanf:"settings"`
	News     NewsConfig     `koanf:"news"`
	Files    FilesConfig    `koanf:"files"`
	Admin    AdminConfig    `koanf:"admin"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

// SettingsConfig selects where the authkey lives. "sql" uses the config
// table of the content database; "redis" keeps it in a Redis hash.
type SettingsConfig struct {
	Backend       string `koanf:"backend" validate:"oneof=sql redis"`
	RedisAddr     string `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`
}

type NewsConfig struct {
	Route    string `koanf:"route" validate:"required,startswith=/"`
	NodeType string `koanf:"node_type" validate:"required"`
	// ImageHost is prepended verbatim to every resolved file URL.
	ImageHost string `koanf:"image_host"`
	Timezone  string `koanf:"timezone" validate:"required,timezone"`
}

type FilesConfig struct {
	Dir     string `koanf:"dir" validate:"required"`
	URLPath string `koanf:"url_path" validate:"required,startswith=/"`
}

type AdminConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Password      string `koanf:"password" validate:"required_if=Enabled true"`
	SessionSecret string `koanf:"session_secret" validate:"required_if=Enabled true"`
	CookieSecure  bool   `koanf:"cookie_secure"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"startswith=/"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":3000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/news.db",
		},
		Settings: SettingsConfig{
			Backend: "sql",
		},
		News: NewsConfig{
			Route:     "/api/news",
			NodeType:  "news",
			ImageHost: "http://retest.com",
			Timezone:  "UTC",
		},
		Files: FilesConfig{
			Dir:     "data/files",
			URLPath: "/sites/default/files",
		},
		Admin: AdminConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Location resolves the configured timezone. Validate guarantees it loads;
// UTC is returned for anything that slipped through.
func (c NewsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfig layers defaults, an optional YAML file and NEWSAPI_* environment
// variables, in that order of precedence. An empty path falls back to
// $NEWSAPI_CONFIG, then to ./config.yaml if it exists.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
		explicit = path != ""
	}
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if explicit {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first invalid field in a readable form.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("invalid config: %s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid config: %s failed %s", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger replaces the logger built from Config.Log.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) {
		a.log = log
		a.hasLogger = true
	}
}

// WithSettingsStore replaces the settings backend selected by Config.Settings.
func WithSettingsStore(s SettingsStore) Option {
	return func(a *App) {
		a.settingsStore = s
	}
}
