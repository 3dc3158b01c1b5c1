// Package config loads nanomgmt settings from defaults, an optional YAML
// file and NANOMGMT_* environment variables, in increasing precedence.
// Command-line flags bound to the same viper instance win over all three.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/logging"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/spf13/viper"
)

const EnvPrefix = "NANOMGMT"

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Keys shared with flag bindings.
const (
	KeyConfig    = "config"
	KeyBackend   = "backend"
	KeyDBPath    = "db.path"
	KeyRemoteURL = "remote.url"
	KeyToken     = "remote.token"
	KeyUserID    = "user.id"
	KeyAddr      = "server.addr"
	KeySecret    = "auth.secret"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyHealth    = "health.interval"
	KeyLimit     = "query.limit"
	KeyHideEmpty = "selection.hide_empty_teams"
)

type Config struct {
	Backend string       `mapstructure:"backend"`
	DB      DBConfig     `mapstructure:"db"`
	Remote  RemoteConfig `mapstructure:"remote"`
	User    UserConfig   `mapstructure:"user"`
	Server  ServerConfig `mapstructure:"server"`
	Auth    AuthConfig   `mapstructure:"auth"`
	Log     LogConfig    `mapstructure:"log"`
	Health  HealthConfig `mapstructure:"health"`
	Query   QueryConfig  `mapstructure:"query"`

	Selection SelectionConfig `mapstructure:"selection"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type RemoteConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type UserConfig struct {
	ID string `mapstructure:"id"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type QueryConfig struct {
	Limit int `mapstructure:"limit"`
}

type SelectionConfig struct {
	// HideEmptyTeams leaves teams without activities out of the team list.
	HideEmptyTeams bool `mapstructure:"hide_empty_teams"`
}

// NewViper returns a viper instance with defaults and environment
// lookup configured. Callers may bind flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBackend, BackendLocal)
	v.SetDefault(KeyDBPath, defaultDBPath())
	v.SetDefault(KeyRemoteURL, "")
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyUserID, "")
	v.SetDefault(KeyAddr, ":8090")
	v.SetDefault(KeySecret, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatText)
	v.SetDefault(KeyHealth, 15*time.Second)
	v.SetDefault(KeyLimit, query.DefaultLimit)
	v.SetDefault(KeyHideEmpty, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file named by the "config" key and
// decodes everything into a validated Config.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.DB.Path = expandHome(cfg.DB.Path)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures settings are usable together.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendLocal:
		if c.DB.Path == "" {
			errs = append(errs, errors.New("db.path is required for the local backend"))
		}
	case BackendRemote:
		if c.Remote.URL == "" {
			errs = append(errs, errors.New("remote.url is required for the remote backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendLocal, BackendRemote, c.Backend))
	}
	if c.Query.Limit < 1 || c.Query.Limit > query.MaxLimit {
		errs = append(errs, fmt.Errorf("query.limit must be within [1, %d], got %d", query.MaxLimit, c.Query.Limit))
	}
	if c.Health.Interval < time.Second {
		errs = append(errs, fmt.Errorf("health.interval must be at least 1s, got %s", c.Health.Interval))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != logging.FormatText && c.Log.Format != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format))
	}
	return errors.Join(errs...)
}

func defaultDBPath() string {
	return filepath.Join("~", ".nanomgmt", "nanomgmt.db")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
