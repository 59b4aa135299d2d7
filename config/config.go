// Package config loads and validates sitedock configuration from defaults,
// yaml config files, SITEDOCK_* environment variables and CLI flags, in
// ascending order of precedence. The loaded struct is passed explicitly into
// the service and store constructors; nothing reads ambient global state.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sitedock/sitedock/database"
	sitehttp "github.com/sitedock/sitedock/http"
)

// Config is the root configuration struct for sitedock.
type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Database database.Config     `mapstructure:"database"`
	Storage  StorageConfig       `mapstructure:"storage"`
	Auth     AuthConfig          `mapstructure:"auth"`
	CORS     sitehttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig           `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL       string `mapstructure:"base_url" validate:"required,url"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"min=0"`
}

// StorageConfig holds filesystem layout configuration.
type StorageConfig struct {
	// SitesPath is the base directory for identifier and name trees.
	SitesPath string `mapstructure:"sites_path" validate:"required"`
	// UploadTmpDir receives streamed upload archives; empty means the OS
	// temp dir.
	UploadTmpDir string `mapstructure:"upload_tmp_dir"`
}

// AuthConfig holds token and admin access configuration.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours" validate:"min=1"`
	AdminKey      string `mapstructure:"admin_key"`
}

// TokenTTL returns the configured token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":    "database.type",
	"db-dsn":     "database.dsn",
	"sites-path": "storage.sites_path",
	"port":       "server.port",
	"base-url":   "server.base_url",
}

// bindFlags binds CLI flags to viper keys with custom name mapping. Only
// flags the user actually set are bound, so unset flags never shadow config
// file or env values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8350)
	v.SetDefault("server.base_url", "http://localhost:8350")
	v.SetDefault("server.max_upload_size", 512<<20) // 512 MiB

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "sitedock.db")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.sites_path", "./sites")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_hours", 24)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix("SITEDOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
