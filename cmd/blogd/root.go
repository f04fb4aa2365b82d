package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/blogsite/internal/config"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configFile string
	envFile    string
}

func (f *rootFlags) load() (*config.Config, error) {
	return config.Load(config.Options{
		EnvFile:    f.envFile,
		ConfigFile: f.configFile,
	})
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "blogd",
		Short:         "blogd serves the blog API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to a config file (default: ./config.yaml if present)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "path to a .env file (default: ./.env if present)")

	cmd.AddCommand(
		newServeCmd(flags),
		newMigrateCmd(flags),
	)
	return cmd
}
