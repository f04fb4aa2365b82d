package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: "Connects to DATABASE_URL, applies any pending migrations and prints\n" +
			"the resulting schema version. Running it on an up-to-date database is a no-op.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			status, err := store.MigrationStatus()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver:  %s\n", cfg.DBDriver)
			fmt.Fprintf(out, "version: %d\n", status.Version)
			if status.Dirty {
				fmt.Fprintln(out, "state:   DIRTY (a migration failed part-way; fix it by hand)")
				return fmt.Errorf("schema version %d is dirty", status.Version)
			}
			fmt.Fprintln(out, "state:   up to date")
			return nil
		},
	}
}
