// Package config collects the gateway's runtime configuration from command
// line flags, environment variables and an optional TOML file, in that order
// of precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Config is the soroban-gateway runtime configuration.
type Config struct {
	ConfigPath string
	Strict     bool

	Endpoint      string
	AdminEndpoint string
	APIKey        string

	RPCURL            string
	NetworkPassphrase string
	FriendbotURL      string

	DBPath string

	BaseFee         int64
	TxTimeout       time.Duration
	PollInterval    time.Duration
	MaxPollAttempts uint

	LogLevel  logrus.Level
	LogFormat LogFormat

	flagset *pflag.FlagSet
}

func (cfg *Config) SetValues(lookupEnv func(string) (string, bool)) error {
	// We start with the defaults
	if err := cfg.loadDefaults(); err != nil {
		return err
	}

	// Then we load from the environment variables and config file, to try to
	// find the config file path
	if err := cfg.loadEnv(lookupEnv); err != nil {
		return err
	}
	if err := cfg.loadFlags(); err != nil {
		return err
	}

	// If we specified a config file, we load that
	if cfg.ConfigPath != "" {
		if err := cfg.loadConfigPath(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}

		// Load from cli flags and environment variables again, to overwrite
		// what we have set in the config file
		if err := cfg.loadEnv(lookupEnv); err != nil {
			return err
		}
		if err := cfg.loadFlags(); err != nil {
			return err
		}
	}

	return nil
}

// loadConfigPath loads a new config from a toml file at the given path.
func (cfg *Config) loadConfigPath() error {
	file, err := os.Open(cfg.ConfigPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return parseToml(file, cfg.Strict, cfg)
}

// loadDefaults populates the config with default values.
func (cfg *Config) loadDefaults() error {
	for _, option := range cfg.options() {
		if option.DefaultValue != nil {
			if err := option.setValue(option.DefaultValue); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadEnv overwrites the values with environment variables, where set.
func (cfg *Config) loadEnv(lookupEnv func(string) (string, bool)) error {
	for _, option := range cfg.options() {
		key, ok := option.getEnvKey()
		if !ok {
			continue
		}
		value, ok := lookupEnv(key)
		if !ok {
			continue
		}
		if err := option.setValue(value); err != nil {
			return err
		}
	}
	return nil
}

// loadFlags overwrites the values with the cli flags the user passed.
func (cfg *Config) loadFlags() error {
	if cfg.flagset == nil {
		return nil
	}
	for _, option := range cfg.options() {
		if option.flag == nil || !option.flag.Changed {
			continue
		}
		if err := option.setValue(option.flag.Value.String()); err != nil {
			return err
		}
	}
	return nil
}

// Init adds the CLI flags to the command. This lets us manage the flags from
// code, instead of having to maintain the same list in code and the flags.
func (cfg *Config) Init(cmd *cobra.Command) error {
	cfg.flagset = cmd.PersistentFlags()
	for _, option := range cfg.options() {
		if err := option.init(cfg.flagset); err != nil {
			return err
		}
	}
	return nil
}

func (o *Option) init(fs *pflag.FlagSet) error {
	switch v := o.DefaultValue.(type) {
	case bool:
		fs.Bool(o.Name, v, o.Usage)
	case string:
		fs.String(o.Name, v, o.Usage)
	case int64:
		fs.Int64(o.Name, v, o.Usage)
	case uint:
		fs.Uint(o.Name, v, o.Usage)
	case uint32:
		fs.Uint32(o.Name, v, o.Usage)
	case time.Duration:
		fs.Duration(o.Name, v, o.Usage)
	case fmt.Stringer:
		fs.String(o.Name, v.String(), o.Usage)
	case nil:
		fs.String(o.Name, "", o.Usage)
	default:
		return fmt.Errorf("unexpected default value type %T for flag %s", o.DefaultValue, o.Name)
	}
	o.flag = fs.Lookup(o.Name)
	return nil
}

// Validate checks the configuration for consistency and missing required
// values. When Strict is set, an unknown key in the config file is an error.
func (cfg *Config) Validate() error {
	return cfg.options().Validate()
}

// LookupEnv is the default environment source for SetValues.
func LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
