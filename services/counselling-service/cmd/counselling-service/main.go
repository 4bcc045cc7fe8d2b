package main

import (
	"fmt"
	"os"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	var envFile string
	rootCmd := &cobra.Command{
		Use:           "counselling-service",
		Short:         "Counselling appointment scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file; real environment variables take precedence")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(tokenCmd(load))
	rootCmd.AddCommand(healthcheckCmd(load))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type loader func() (*config.Config, error)
