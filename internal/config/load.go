// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"listen":         "server.addr",
	"metrics-listen": "metrics.addr",
	"database-url":   "database.url",
	"auto-migrate":   "database.auto_migrate",
	"mail-driver":    "mail.driver",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// RegisterFlags adds the configuration flags to fs. Their defaults mirror
// Default, so an unset flag never overrides a value from the file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("listen", d.Server.Addr, "API listen address")
	fs.String("metrics-listen", d.Metrics.Addr, "metrics and health listen address (empty disables)")
	fs.String("database-url", "", "PostgreSQL URL (default $"+EnvDatabaseURL+")")
	fs.Bool("auto-migrate", false, "apply pending migrations before serving")
	fs.String("mail-driver", d.Mail.Driver, "notification driver: console or smtp")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: json or text")
}

// Load builds the configuration. Precedence, lowest first: Default, the YAML
// file at path (skipped when path is empty), flags explicitly set on fs, and
// the secret environment variables. The file is validated against the
// configuration JSON Schema before it is merged.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		provider := file.Provider(path)
		data, err := provider.ReadBytes()
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(provider, yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	applyEnv(&cfg, os.LookupEnv)
	return &cfg, nil
}

// applyEnv overlays secrets from the environment.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		cfg.Database.URL = v
	}
	if v, ok := lookup(EnvTokenSigningKey); ok && v != "" {
		cfg.Token.SigningKey = v
	}
	if v, ok := lookup(EnvSMTPPassword); ok && v != "" {
		cfg.Mail.Password = v
	}
}
