package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Placeholder values shipped in the example config and .env templates.
const (
	PlaceholderURL     = "YOUR_URL"
	PlaceholderAnonKey = "YOUR_ANON_KEY"
)

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Identity IdentityConfig `toml:"identity"`
	API      APIConfig      `toml:"api"`
	Checkout CheckoutConfig `toml:"checkout"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// IdentityConfig contains the hosted auth service settings.
type IdentityConfig struct {
	URL       string `toml:"url" env:"SUPABASE_URL"`
	AnonKey   string `toml:"anon_key" env:"SUPABASE_ANON_KEY"`
	Provider  string `toml:"provider" env:"CLIPY_AUTH_PROVIDER"`
	JWTSecret string `toml:"jwt_secret" env:"JWT_SECRET"`
}

// APIConfig contains the credits REST API settings.
type APIConfig struct {
	BaseURL  string `toml:"base_url" env:"API_BASE_URL"`
	AdminKey string `toml:"admin_key" env:"ADMIN_SECRET_KEY"`
}

// CheckoutConfig contains the payment processor link used by the credits drawer.
type CheckoutConfig struct {
	URL string `toml:"url" env:"CLIPY_CHECKOUT_URL"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"CLIPY_DB_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host" env:"CLIPY_HOST"`
	Port           int      `toml:"port" env:"CLIPY_PORT"`
	Origin         string   `toml:"origin" env:"CLIPY_ORIGIN"`
	AllowedOrigins []string `toml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"CLIPY_LOG_LEVEL"`
	File  string `toml:"file"`
}

// Addr returns the host:port pair the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate reports a configuration error when the auth service URL or anonymous key is missing or still a placeholder.
func (c IdentityConfig) Validate() error {
	var missing []string
	if c.URL == "" || c.URL == PlaceholderURL {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.AnonKey == "" || c.AnonKey == PlaceholderAnonKey {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set to actual values (not placeholders)", ErrMissingConfig, strings.Join(missing, " and "))
	}
	return nil
}

// LoadConfig reads a TOML configuration file on top of the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// envAliases maps the browser-era variable names onto the ones read by [ApplyEnv].
var envAliases = map[string]string{
	"NEXT_PUBLIC_SUPABASE_URL":      "SUPABASE_URL",
	"NEXT_PUBLIC_SUPABASE_ANON_KEY": "SUPABASE_ANON_KEY",
	"NEXT_PUBLIC_API_BASE_URL":      "API_BASE_URL",
}

// ApplyEnv loads the optional dotenv files and overlays environment variables onto config.
//
// Unset variables leave the file values untouched.
func ApplyEnv(config *Config, dotenv ...string) error {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, path, err)
		}
	}

	return overlayEnv(config, environ())
}

func overlayEnv(config *Config, environment map[string]string) error {
	for alias, name := range envAliases {
		if v, ok := environment[alias]; ok && environment[name] == "" {
			environment[name] = v
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Environment: environment}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// LoadOrDefault loads path when it exists, falling back to defaults, then applies the environment overlay.
func LoadOrDefault(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}
