package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultStorePath = "data/storefront.db"

	defaultUpstreamTimeout = 10 * time.Second

	defaultLogLevel = "info"
	defaultLogFile  = "logs/api.log"

	defaultGuestRetention = 30 * 24 * time.Hour
	defaultSweepSchedule  = "@daily"
	defaultWishlistLimit  = 200
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Upstream UpstreamConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Guest    GuestConfig
	Features FeatureFlags
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig locates the embedded key-value store holding device-local state.
type StoreConfig struct {
	Path string
}

// UpstreamConfig points at the remote cart/catalog backend.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// LoggingConfig controls the structured log output.
type LoggingConfig struct {
	Level       string
	FileEnabled bool
	Filename    string
}

// GuestConfig bounds device-local state retention.
type GuestConfig struct {
	Retention     time.Duration
	SweepSchedule string
	WishlistLimit int
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnableWishlist bool
	EnableMerge    bool
}

// ValidationError is returned when required configuration fields are missing
// or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Store: StoreConfig{
			Path: stringWithDefault(lookup, "API_STORE_PATH", defaultStorePath),
		},
		Upstream: UpstreamConfig{
			BaseURL: stringWithDefault(lookup, "API_UPSTREAM_BASE_URL", ""),
			Timeout: durationWithDefault(lookup, "API_UPSTREAM_TIMEOUT", defaultUpstreamTimeout),
		},
		Auth: AuthConfig{
			JWTSecret: stringWithDefault(lookup, "API_AUTH_JWT_SECRET", ""),
			Issuer:    stringWithDefault(lookup, "API_AUTH_ISSUER", ""),
		},
		Logging: LoggingConfig{
			Level:       stringWithDefault(lookup, "API_LOG_LEVEL", defaultLogLevel),
			FileEnabled: boolWithDefault(lookup, "API_LOG_FILE_ENABLE", false),
			Filename:    stringWithDefault(lookup, "API_LOG_FILENAME", defaultLogFile),
		},
		Guest: GuestConfig{
			Retention:     durationWithDefault(lookup, "API_GUEST_RETENTION", defaultGuestRetention),
			SweepSchedule: stringWithDefault(lookup, "API_GUEST_SWEEP_SCHEDULE", defaultSweepSchedule),
			WishlistLimit: intWithDefault(lookup, "API_WISHLIST_LIMIT", defaultWishlistLimit),
		},
		Features: FeatureFlags{
			EnableWishlist: boolWithDefault(lookup, "API_FEATURE_WISHLIST", true),
			EnableMerge:    boolWithDefault(lookup, "API_FEATURE_MERGE", true),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		missing = append(missing, "Upstream.BaseURL")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		missing = append(missing, "Auth.JWTSecret")
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		missing = append(missing, "Store.Path")
	}
	if cfg.Guest.Retention <= 0 {
		missing = append(missing, "Guest.Retention")
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ValidationError{fields: missing}
}

type lookupFunc func(key string) (string, bool)

func stringWithDefault(lookup lookupFunc, key string, fallback string) string {
	if value, ok := lookup(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func durationWithDefault(lookup lookupFunc, key string, fallback time.Duration) time.Duration {
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func intWithDefault(lookup lookupFunc, key string, fallback int) int {
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := cast.ToIntE(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func boolWithDefault(lookup lookupFunc, key string, fallback bool) bool {
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := cast.ToBoolE(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// loadDotEnv parses a dotenv file when it exists. Missing files are not an
// error; malformed lines are skipped.
func loadDotEnv(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
