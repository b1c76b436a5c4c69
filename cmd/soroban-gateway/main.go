package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	supportlog "github.com/stellar/go/support/log"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/config"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/daemon"
)

func mustPositiveExitCode(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

func main() {
	var cfg config.Config

	rootCmd := &cobra.Command{
		Use:   "soroban-gateway",
		Short: "Submit and confirm Soroban smart contract transactions",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cfg.SetValues(config.LookupEnv); err != nil {
				mustPositiveExitCode(err)
			}
			if err := cfg.Validate(); err != nil {
				mustPositiveExitCode(err)
			}
			daemon.MustNew(&cfg, supportlog.New()).Run()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and exit",
		Run: func(_ *cobra.Command, _ []string) {
			if config.CommitHash == "" {
				fmt.Printf("soroban-gateway dev\n")
			} else {
				fmt.Printf("soroban-gateway %s (%s) %s\n", config.Version, config.CommitHash, config.BuildTimestamp)
			}
		},
	}

	genConfigFileCmd := &cobra.Command{
		Use:   "gen-config-file",
		Short: "Generate a config file with default settings",
		Run: func(_ *cobra.Command, _ []string) {
			// Turn off validation, so a default config file can be generated
			// before the required values are known
			if err := cfg.SetValues(config.LookupEnv); err != nil {
				mustPositiveExitCode(err)
			}
			out, err := cfg.MarshalTOML()
			if err != nil {
				mustPositiveExitCode(err)
			}
			fmt.Println(string(out))
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(genConfigFileCmd)

	if err := cfg.Init(rootCmd); err != nil {
		supportlog.New().WithError(err).Fatal("could not initialize config options")
	}

	if err := rootCmd.Execute(); err != nil {
		mustPositiveExitCode(err)
	}
}
