package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/counselbook/libs/db"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending embedded migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.DatabaseURL) == "" {
				return errors.New("DATABASE_URL is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: 2})
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			applied, err := db.NewMigrator(pool, storage.Migrations()).Up(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List embedded migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrations, err := db.LoadMigrations(storage.Migrations())
			if err != nil {
				return err
			}
			for _, m := range migrations {
				fmt.Fprintf(cmd.OutOrStdout(), "%03d %s\n", m.Version, m.Name)
			}
			return nil
		},
	})
	return cmd
}
