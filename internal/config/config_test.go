// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/pkg/errutil"
)

var signingKey = strings.Repeat("k", 32)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accountd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func flagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvTokenSigningKey, "")
	t.Setenv(EnvSMTPPassword, "")
}

func TestLoad_DefaultsOnly(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("", flagSet(t))
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, time.Hour, cfg.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, MailDriverConsole, cfg.Mail.Driver)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: ":9000"
  shutdown_timeout: 30s
  public_routes: ["/api/auth/**"]
database:
  url: postgres://file@localhost/accounts
  max_conns: 8
token:
  signing_key: from-file-but-long-enough-for-hs256
  access_ttl: 15m
log:
  level: debug
`)

	t.Run("file overrides defaults, unset flags do not override file", func(t *testing.T) {
		cfg, err := Load(path, flagSet(t))
		require.NoError(t, err)

		assert.Equal(t, ":9000", cfg.Server.Addr)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout())
		assert.Equal(t, []string{"/api/auth/**"}, cfg.Server.PublicRoutes)
		assert.Equal(t, "postgres://file@localhost/accounts", cfg.Database.URL)
		assert.EqualValues(t, 8, cfg.Database.MaxConns)
		assert.EqualValues(t, 5, cfg.Database.ConnectRetries, "untouched keys keep defaults")
		assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("explicit flags override file", func(t *testing.T) {
		cfg, err := Load(path, flagSet(t, "--listen", ":7000", "--log-level", "warn", "--auto-migrate"))
		require.NoError(t, err)

		assert.Equal(t, ":7000", cfg.Server.Addr)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.True(t, cfg.Database.AutoMigrate)
	})

	t.Run("environment overrides everything for secrets", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "postgres://env@localhost/accounts")
		t.Setenv(EnvTokenSigningKey, signingKey)

		cfg, err := Load(path, flagSet(t, "--database-url", "postgres://flag@localhost/accounts"))
		require.NoError(t, err)

		assert.Equal(t, "postgres://env@localhost/accounts", cfg.Database.URL)
		assert.Equal(t, signingKey, cfg.Token.SigningKey)
	})
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server:\n  port: 80\n"), nil)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
	})

	t.Run("enum violation", func(t *testing.T) {
		_, err := Load(writeConfig(t, "mail:\n  driver: pigeon\n"), nil)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := Load(writeConfig(t, "database:\n  max_conns: many\n"), nil)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
	})
}

func validConfig() Config {
	cfg := Default()
	cfg.Database.URL = "postgres://localhost/accounts"
	cfg.Token.SigningKey = signingKey
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "url"},
		{"missing signing key", func(c *Config) { c.Token.SigningKey = "" }, "signing_key"},
		{"short signing key", func(c *Config) { c.Token.SigningKey = "short" }, "signing_key"},
		{"bad duration", func(c *Config) { c.Token.AccessTTL = "an hour" }, "access_ttl"},
		{"negative duration", func(c *Config) { c.Server.ShutdownTimeout = "-1s" }, "shutdown_timeout"},
		{"smtp without host", func(c *Config) { c.Mail.Driver = MailDriverSMTP; c.Mail.From = "admin@example.com" }, "host"},
		{"smtp bad from", func(c *Config) {
			c.Mail.Driver = MailDriverSMTP
			c.Mail.Host = "smtp.example.com"
			c.Mail.From = "admin"
		}, "from"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseDurationFallback(t *testing.T) {
	cfg := validConfig()
	cfg.Token.RefreshTTL = "garbage"
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL())
}

func TestGenerateSchema(t *testing.T) {
	raw, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, SchemaID, schema["$id"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"server", "metrics", "database", "token", "mail", "log"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, schema, "required", "no key is mandatory in the file")
}

func TestValidateYAML(t *testing.T) {
	require.NoError(t, ValidateYAML(nil))
	require.NoError(t, ValidateYAML([]byte("log:\n  format: text\n")))
	errutil.AssertErrorCode(t, ValidateYAML([]byte("log: [unclosed")), "CONFIG_YAML_INVALID")
	errutil.AssertErrorCode(t, ValidateYAML([]byte("log:\n  format: xml\n")), "CONFIG_SCHEMA_INVALID")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvSMTPPassword: "pw", EnvDatabaseURL: ""}
	cfg := validConfig()
	applyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "pw", cfg.Mail.Password)
	assert.Equal(t, "postgres://localhost/accounts", cfg.Database.URL, "empty values are ignored")
}
