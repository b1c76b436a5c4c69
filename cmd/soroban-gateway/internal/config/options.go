package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
)

const (
	defaultEndpoint     = "localhost:8000"
	defaultDBPath       = "soroban_gateway.sqlite"
	defaultTxTimeout    = 180 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = uint(5)
)

// LogFormat is the output encoding of the application logs.
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
)

func (f LogFormat) String() string {
	if f == LogFormatJSON {
		return "json"
	}
	return "text"
}

// ParseLogFormat maps a user-supplied string onto a LogFormat.
func ParseLogFormat(format string) (LogFormat, error) {
	switch format {
	case "text":
		return LogFormatText, nil
	case "json":
		return LogFormatJSON, nil
	default:
		return 0, fmt.Errorf("invalid log-format: %s", format)
	}
}

func (cfg *Config) options() Options {
	return Options{
		{
			Name:      "config-path",
			EnvVar:    "SOROBAN_GATEWAY_CONFIG_PATH",
			TomlKey:   "-",
			Usage:     "File path to the TOML config file",
			ConfigKey: &cfg.ConfigPath,
		},
		{
			Name:         "config-strict",
			EnvVar:       "SOROBAN_GATEWAY_CONFIG_STRICT",
			TomlKey:      "STRICT",
			Usage:        "Enable strict TOML config file parsing (only accept known keys)",
			ConfigKey:    &cfg.Strict,
			DefaultValue: false,
		},
		{
			Name:         "endpoint",
			Usage:        "Endpoint to listen and serve the REST API on",
			ConfigKey:    &cfg.Endpoint,
			DefaultValue: defaultEndpoint,
		},
		{
			Name:         "admin-endpoint",
			Usage:        "Admin endpoint to listen and serve on. Serves metrics and pprof. Disabled when empty.",
			ConfigKey:    &cfg.AdminEndpoint,
			DefaultValue: "",
		},
		{
			Name:         "api-key",
			Usage:        "API key clients must present in the X-Api-Key header. Disables authentication when empty.",
			ConfigKey:    &cfg.APIKey,
			DefaultValue: "",
		},
		{
			Name:      "rpc-url",
			Usage:     "URL of the Soroban RPC node to submit transactions through",
			ConfigKey: &cfg.RPCURL,
			Validate:  required,
		},
		{
			Name:         "network-passphrase",
			Usage:        "Network passphrase of the Stellar network transactions should be signed for",
			ConfigKey:    &cfg.NetworkPassphrase,
			DefaultValue: network.TestNetworkPassphrase,
			Validate:     required,
		},
		{
			Name:         "friendbot-url",
			Usage:        "URL of the friendbot used to fund newly created accounts. Account creation is disabled when empty.",
			ConfigKey:    &cfg.FriendbotURL,
			DefaultValue: "",
		},
		{
			Name:         "db-path",
			Usage:        "File path of the transaction journal SQLite database",
			ConfigKey:    &cfg.DBPath,
			DefaultValue: defaultDBPath,
		},
		{
			Name:         "base-fee",
			Usage:        "Base fee (in stroops) to offer per transaction",
			ConfigKey:    &cfg.BaseFee,
			DefaultValue: int64(txnbuild.MinBaseFee),
			Validate:     positive,
		},
		{
			Name:         "tx-timeout",
			Usage:        "Validity window of signed transactions. The ledger rejects a transaction after this expires.",
			ConfigKey:    &cfg.TxTimeout,
			DefaultValue: defaultTxTimeout,
			Validate:     positive,
		},
		{
			Name:         "poll-interval",
			Usage:        "Delay between transaction status polls",
			ConfigKey:    &cfg.PollInterval,
			DefaultValue: defaultPollInterval,
			Validate:     positive,
		},
		{
			Name:         "max-poll-attempts",
			Usage:        "Number of transaction status polls before giving up on confirmation",
			ConfigKey:    &cfg.MaxPollAttempts,
			DefaultValue: defaultMaxAttempts,
			Validate:     positive,
		},
		{
			Name:         "log-level",
			Usage:        "minimum log severity (debug, info, warn, error) to log",
			ConfigKey:    &cfg.LogLevel,
			DefaultValue: logrus.InfoLevel,
			CustomSetValue: func(option *Option, i interface{}) error {
				switch v := i.(type) {
				case nil:
					return nil
				case string:
					ll, err := logrus.ParseLevel(v)
					if err != nil {
						return fmt.Errorf("could not parse %s: %q", option.Name, v)
					}
					cfg.LogLevel = ll
				case logrus.Level:
					cfg.LogLevel = v
				default:
					return fmt.Errorf("could not parse %s: %v", option.Name, i)
				}
				return nil
			},
			MarshalTOML: func(option *Option) (interface{}, error) {
				return cfg.LogLevel.String(), nil
			},
		},
		{
			Name:         "log-format",
			Usage:        "format used for output logs (text or json)",
			ConfigKey:    &cfg.LogFormat,
			DefaultValue: LogFormatText,
			CustomSetValue: func(option *Option, i interface{}) error {
				switch v := i.(type) {
				case nil:
					return nil
				case string:
					format, err := ParseLogFormat(v)
					if err != nil {
						return err
					}
					cfg.LogFormat = format
				case LogFormat:
					cfg.LogFormat = v
				default:
					return fmt.Errorf("could not parse %s: %v", option.Name, i)
				}
				return nil
			},
			MarshalTOML: func(option *Option) (interface{}, error) {
				return cfg.LogFormat.String(), nil
			},
		},
	}
}
