// Package config loads and validates service configuration. Settings
// come from DROP_* environment variables, optionally overlaid on a YAML
// file, and are validated in one pass so the process fails fast with
// every problem reported at once.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for tunables not set explicitly.
const (
	DefaultAddr        = ":8080"
	DefaultMaxFileSize = 1 << 30 // 1 GiB
	DefaultRangeCap    = 4 << 20 // 4 MiB
	DefaultTokenTTL    = 15 * time.Minute
)

// Config is the explicit settings struct handed to each component at
// construction.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`

	// StorageBackend selects "local" or "minio".
	StorageBackend string `yaml:"storage_backend"`
	LocalDir       string `yaml:"local_dir"`
	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`

	MaxFileSize int64 `yaml:"max_file_size"`
	RangeCap    int64 `yaml:"range_cap"`

	PasswordProtection bool `yaml:"password_protection"`
	RequireAuth        bool `yaml:"require_auth"`

	AdminUser   string        `yaml:"admin_user"`
	AdminPass   string        `yaml:"admin_pass"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Load builds the configuration: YAML file first (if DROP_CONFIG_FILE
// is set), then env overrides, then validation.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:               DefaultAddr,
		StorageBackend:     "local",
		LocalDir:           "share",
		MaxFileSize:        DefaultMaxFileSize,
		RangeCap:           DefaultRangeCap,
		PasswordProtection: true,
		RequireAuth:        true,
		AdminUser:          "admin",
		TokenTTL:           DefaultTokenTTL,
		LogLevel:           "info",
	}

	if path := os.Getenv("DROP_CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("DROP_ADDR", &cfg.Addr)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("DROP_STORAGE_BACKEND", &cfg.StorageBackend)
	setString("DROP_LOCAL_DIR", &cfg.LocalDir)
	setString("DROP_MINIO_ENDPOINT", &cfg.MinioEndpoint)
	setString("DROP_MINIO_ACCESS_KEY", &cfg.MinioAccessKey)
	setString("DROP_MINIO_SECRET_KEY", &cfg.MinioSecretKey)
	setString("DROP_MINIO_BUCKET", &cfg.MinioBucket)
	setInt64("DROP_MAX_FILE_SIZE", &cfg.MaxFileSize)
	setInt64("DROP_RANGE_CAP", &cfg.RangeCap)
	setBool("DROP_PASSWORD_PROTECTION", &cfg.PasswordProtection)
	setBool("DROP_REQUIRE_AUTH", &cfg.RequireAuth)
	setString("DROP_ADMIN_USER", &cfg.AdminUser)
	setString("DROP_ADMIN_PASS", &cfg.AdminPass)
	setString("DROP_TOKEN_SECRET", &cfg.TokenSecret)
	if v := os.Getenv("DROP_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TokenTTL = d
		}
	}
	setString("DROP_LOG_LEVEL", &cfg.LogLevel)
	setBool("DROP_LOG_JSON", &cfg.LogJSON)
}
