package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	Email    EmailConfig    `mapstructure:"email"`
	Auth     AuthConfig     `mapstructure:"auth"`
	APIAuth  AuthConfig     `mapstructure:"api_auth"`
}

// AppConfig holds application level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the connection settings. Driver selects between
// sqlite and postgres; DSN is the driver specific connection string.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// S3Config holds the object storage settings. Endpoint is optional and
// points at an S3 compatible service when set.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	BucketURL string `mapstructure:"bucket_url"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// EmailConfig holds the transactional email settings.
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// AuthConfig holds the settings for one auth surface. The portal uses a
// cookie with a week long session; the API uses a bearer header with a
// one hour token. Both surfaces share the signing key so a session can
// be validated by either middleware.
type AuthConfig struct {
	SigningKey           string        `mapstructure:"signing_key"`
	SigningMethod        string        `mapstructure:"signing_method"`
	ContextKey           string        `mapstructure:"context_key"`
	TokenExpiration      time.Duration `mapstructure:"token_expiration"`
	TokenLookup          string        `mapstructure:"token_lookup"`
	AuthScheme           string        `mapstructure:"auth_scheme"`
	Issuer               string        `mapstructure:"issuer"`
	Audience             []string      `mapstructure:"audience"`
	RejectedRouteKey     string        `mapstructure:"rejected_route_key"`
	RejectedRouteDefault string        `mapstructure:"rejected_route_default"`
}

func (a AuthConfig) GetSigningKey() string             { return a.SigningKey }
func (a AuthConfig) GetSigningMethod() string          { return a.SigningMethod }
func (a AuthConfig) GetContextKey() string             { return a.ContextKey }
func (a AuthConfig) GetTokenExpiration() time.Duration { return a.TokenExpiration }
func (a AuthConfig) GetTokenLookup() string            { return a.TokenLookup }
func (a AuthConfig) GetAuthScheme() string             { return a.AuthScheme }
func (a AuthConfig) GetIssuer() string                 { return a.Issuer }
func (a AuthConfig) GetAudience() []string             { return a.Audience }
func (a AuthConfig) GetRejectedRouteKey() string       { return a.RejectedRouteKey }
func (a AuthConfig) GetRejectedRouteDefault() string   { return a.RejectedRouteDefault }

// Load reads configuration from an optional .env file plus environment
// variables.
func Load() (*Config, error) {
	return LoadWithPath(".env")
}

// LoadWithPath loads configuration from a specific env file. A missing
// file is fine, environment variables still apply.
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !strings.Contains(err.Error(), "no such file") {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "go-portal")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8978)

	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:app.db?cache=shared&_pragma=foreign_keys(1)")

	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_BUCKET", "uploads")
	v.SetDefault("S3_BUCKET_URL", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")

	v.SetDefault("EMAIL_RESEND_API_KEY", "")
	v.SetDefault("EMAIL_FROM", "onboarding@resend.dev")

	v.SetDefault("AUTH_SIGNING_KEY", "secret")
	v.SetDefault("AUTH_SIGNING_METHOD", "HS256")
	v.SetDefault("AUTH_CONTEXT_KEY", "user")
	v.SetDefault("AUTH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("AUTH_TOKEN_LOOKUP", "cookie:auth-token")
	v.SetDefault("AUTH_SCHEME", "Bearer")
	v.SetDefault("AUTH_ISSUER", "go-portal")
	v.SetDefault("AUTH_AUDIENCE", "")
	v.SetDefault("AUTH_REJECTED_ROUTE_KEY", "rejected_route")
	v.SetDefault("AUTH_REJECTED_ROUTE_DEFAULT", "/")

	v.SetDefault("API_AUTH_TOKEN_EXPIRATION", "1h")
	v.SetDefault("API_AUTH_TOKEN_LOOKUP", "header:Authorization")
}

func bindConfig(v *viper.Viper, cfg *Config) {
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")

	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")

	cfg.Database.Driver = v.GetString("DATABASE_DRIVER")
	cfg.Database.DSN = v.GetString("DATABASE_DSN")

	cfg.S3.Region = v.GetString("S3_REGION")
	cfg.S3.Endpoint = v.GetString("S3_ENDPOINT")
	cfg.S3.Bucket = v.GetString("S3_BUCKET")
	cfg.S3.BucketURL = v.GetString("S3_BUCKET_URL")
	cfg.S3.AccessKey = v.GetString("S3_ACCESS_KEY")
	cfg.S3.SecretKey = v.GetString("S3_SECRET_KEY")

	cfg.Email.ResendAPIKey = v.GetString("EMAIL_RESEND_API_KEY")
	cfg.Email.From = v.GetString("EMAIL_FROM")

	cfg.Auth.SigningKey = v.GetString("AUTH_SIGNING_KEY")
	cfg.Auth.SigningMethod = v.GetString("AUTH_SIGNING_METHOD")
	cfg.Auth.ContextKey = v.GetString("AUTH_CONTEXT_KEY")
	cfg.Auth.TokenExpiration = v.GetDuration("AUTH_TOKEN_EXPIRATION")
	cfg.Auth.TokenLookup = v.GetString("AUTH_TOKEN_LOOKUP")
	cfg.Auth.AuthScheme = v.GetString("AUTH_SCHEME")
	cfg.Auth.Issuer = v.GetString("AUTH_ISSUER")
	cfg.Auth.Audience = splitList(v.GetString("AUTH_AUDIENCE"))
	cfg.Auth.RejectedRouteKey = v.GetString("AUTH_REJECTED_ROUTE_KEY")
	cfg.Auth.RejectedRouteDefault = v.GetString("AUTH_REJECTED_ROUTE_DEFAULT")

	// The API surface shares the portal signing key and issuer so a
	// token minted on either side validates against the same material.
	cfg.APIAuth = cfg.Auth
	cfg.APIAuth.TokenExpiration = v.GetDuration("API_AUTH_TOKEN_EXPIRATION")
	cfg.APIAuth.TokenLookup = v.GetString("API_AUTH_TOKEN_LOOKUP")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth signing key is required")
	}

	if c.IsProduction() && c.Auth.SigningKey == "secret" {
		return fmt.Errorf("auth signing key must be changed in production")
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Auth.TokenExpiration <= 0 || c.APIAuth.TokenExpiration <= 0 {
		return fmt.Errorf("token expiration must be positive")
	}

	return nil
}

// IsProduction returns true if running in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
