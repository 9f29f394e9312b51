package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/itemgate/database"
	itemgatehttp "github.com/sagarc03/itemgate/http"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// ErrSecretRequired is returned by AuthConfig.Validate when no signing
// secret is configured.
var ErrSecretRequired = errors.New("auth.secret is required (set ITEMGATE_AUTH_SECRET or JWT_SECRET)")

// Config is the root configuration struct for itemgate.
type Config struct {
	Env      string                  `mapstructure:"env" validate:"omitempty,oneof=dev development prod production test"`
	Server   ServerConfig            `mapstructure:"server"`
	Auth     AuthConfig              `mapstructure:"auth"`
	Database database.Config         `mapstructure:"database"`
	Storage  StorageConfig           `mapstructure:"storage"`
	CORS     itemgatehttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig               `mapstructure:"log"`
}

// IsProduction reports whether env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize  int64         `mapstructure:"max_upload_size" validate:"min=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=0"`
	CleanupTimeout time.Duration `mapstructure:"cleanup_timeout" validate:"min=0"`
	Banner         string        `mapstructure:"banner"`
}

// AuthConfig holds token and password hashing configuration.
type AuthConfig struct {
	Secret     string        `mapstructure:"secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" validate:"min=0"`
	BcryptCost int           `mapstructure:"bcrypt_cost" validate:"min=4,max=31"`
}

// Validate checks the settings that only the server needs. Load does not
// call it so that commands like migrate run without a secret.
func (a AuthConfig) Validate() error {
	if strings.TrimSpace(a.Secret) == "" {
		return ErrSecretRequired
	}
	return nil
}

// StorageConfig selects and configures the blob store.
type StorageConfig struct {
	Type               string   `mapstructure:"type" validate:"required,oneof=filesystem s3"`
	Path               string   `mapstructure:"path" validate:"required_if=Type filesystem"`
	PublicBaseURL      string   `mapstructure:"public_base_url" validate:"omitempty,url"`
	Bucket             string   `mapstructure:"bucket" validate:"required_if=Type s3"`
	ServiceAccountFile string   `mapstructure:"service_account_file" validate:"required_if=Type s3"`
	S3                 S3Config `mapstructure:"s3"`
}

// S3Config holds options for S3-compatible object storage.
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint" validate:"omitempty,url"`
	Region       string `mapstructure:"region"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	PublicRead   bool   `mapstructure:"public_read"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-type": "storage.type",
	"storage-path": "storage.path",
	"port":         "server.port",
	"log-level":    "log.level",
}

// legacyEnv lists environment variables read without the ITEMGATE_ prefix.
// The prefixed name wins when both are set.
var legacyEnv = map[string]string{
	"server.port": "PORT",
	"auth.secret": "JWT_SECRET",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// bindEnv registers the legacy variable names alongside the prefixed ones.
func bindEnv(v *viper.Viper) {
	for key, legacy := range legacyEnv {
		prefixed := "ITEMGATE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, legacy)
	}
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.max_upload_size", 10<<20)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.cleanup_timeout", "30s")
	v.SetDefault("server.banner", "")

	v.SetDefault("auth.token_ttl", "0s")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "itemgate.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.tables.users", "itemgate_users")
	v.SetDefault("database.tables.credentials", "itemgate_credentials")
	v.SetDefault("database.tables.items", "itemgate_items")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.service_account_file", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.s3.public_read", true)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("cors.max_age", 300)

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

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
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

	// 3. Bind environment variables
	v.SetEnvPrefix("ITEMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Database.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
