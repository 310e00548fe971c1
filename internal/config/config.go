// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package config loads accountd configuration from a YAML file, command-line
// flags and secret environment variables.
package config

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// Environment variables consulted for secrets.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvTokenSigningKey = "ACCOUNTD_TOKEN_SIGNING_KEY"
	EnvSMTPPassword    = "ACCOUNTD_SMTP_PASSWORD"
)

// Mail drivers.
const (
	MailDriverConsole = "console"
	MailDriverSMTP    = "smtp"
)

// minSigningKeyLength matches the HS256 key floor enforced by the token issuer.
const minSigningKeyLength = 32

// Config is the complete accountd configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" json:"server,omitempty" jsonschema:"description=API listener"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" jsonschema:"description=Metrics and health listener"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Token    TokenConfig    `koanf:"token" json:"token,omitempty"`
	Mail     MailConfig     `koanf:"mail" json:"mail,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr            string   `koanf:"addr" json:"addr,omitempty" jsonschema:"description=host:port the API listens on,default=:8080"`
	ShutdownTimeout string   `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty" jsonschema:"description=Go duration allowed for in-flight requests on shutdown,default=15s"`
	PublicRoutes    []string `koanf:"public_routes" json:"public_routes,omitempty" jsonschema:"description=Glob patterns of API paths served without a bearer token"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=host:port for /metrics and /healthz,default=127.0.0.1:9100"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	URL            string `koanf:"url" json:"url,omitempty" jsonschema:"description=PostgreSQL URL; DATABASE_URL overrides it"`
	MaxConns       int32  `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=0"`
	ConnectRetries uint64 `koanf:"connect_retries" json:"connect_retries,omitempty" jsonschema:"minimum=0,default=5"`
	AutoMigrate    bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty" jsonschema:"description=Apply pending migrations on serve"`
}

// TokenConfig configures JWT issuance.
type TokenConfig struct {
	SigningKey string `koanf:"signing_key" json:"signing_key,omitempty" jsonschema:"description=HS256 key of at least 32 bytes; ACCOUNTD_TOKEN_SIGNING_KEY overrides it"`
	Issuer     string `koanf:"issuer" json:"issuer,omitempty" jsonschema:"default=accountd"`
	AccessTTL  string `koanf:"access_ttl" json:"access_ttl,omitempty" jsonschema:"description=Go duration,default=1h"`
	RefreshTTL string `koanf:"refresh_ttl" json:"refresh_ttl,omitempty" jsonschema:"description=Go duration,default=24h"`
}

// MailConfig selects and configures the notification driver.
type MailConfig struct {
	Driver   string `koanf:"driver" json:"driver,omitempty" jsonschema:"description=console writes messages to standard output for development,enum=console,enum=smtp,default=console"`
	Host     string `koanf:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" json:"port,omitempty" jsonschema:"minimum=0,maximum=65535"`
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty" jsonschema:"description=ACCOUNTD_SMTP_PASSWORD overrides it"`
	From     string `koanf:"from" json:"from,omitempty"`
	TLS      string `koanf:"tls" json:"tls,omitempty" jsonschema:"enum=mandatory,enum=opportunistic,enum=none,default=opportunistic"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text,default=json"`
}

// Default returns the configuration used for keys that no source sets.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "15s",
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{
			ConnectRetries: 5,
		},
		Token: TokenConfig{
			Issuer:     "accountd",
			AccessTTL:  "1h",
			RefreshTTL: "24h",
		},
		Mail: MailConfig{Driver: MailDriverConsole, TLS: "opportunistic"},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

func validDuration(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("must be a Go duration such as 30s or 1h")
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

// Validate checks the configuration needed by the serve command.
func (c *Config) Validate() error {
	err := validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Addr, validation.Required),
			validation.Field(&c.Server.ShutdownTimeout, validation.By(validDuration)),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.URL, validation.Required.Error("is required (set database.url or DATABASE_URL)")),
		),
		"token": validation.ValidateStruct(&c.Token,
			validation.Field(&c.Token.SigningKey,
				validation.Required.Error("is required (set token.signing_key or ACCOUNTD_TOKEN_SIGNING_KEY)"),
				validation.Length(minSigningKeyLength, 0)),
			validation.Field(&c.Token.AccessTTL, validation.By(validDuration)),
			validation.Field(&c.Token.RefreshTTL, validation.By(validDuration)),
		),
		"mail": c.Mail.validate(),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("", "debug", "info", "warn", "error")),
			validation.Field(&c.Log.Format, validation.In("", "json", "text")),
		),
	}.Filter()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

func (m *MailConfig) validate() error {
	var hostRules, fromRules []validation.Rule
	if m.Driver == MailDriverSMTP {
		hostRules = append(hostRules, validation.Required)
		fromRules = append(fromRules, validation.Required)
	}
	fromRules = append(fromRules, is.Email)

	return validation.ValidateStruct(m,
		validation.Field(&m.Driver, validation.In(MailDriverConsole, MailDriverSMTP)),
		validation.Field(&m.Host, hostRules...),
		validation.Field(&m.From, fromRules...),
		validation.Field(&m.TLS, validation.In("", "mandatory", "opportunistic", "none")),
	)
}

// ShutdownTimeout returns the parsed server shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

// AccessTTL returns the parsed access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.Token.AccessTTL, time.Hour)
}

// RefreshTTL returns the parsed refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.Token.RefreshTTL, 24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
