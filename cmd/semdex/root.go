// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/semdex-dev/semdex/internal/config"
	"github.com/semdex-dev/semdex/internal/secrets"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the semdex CLI with global flags and every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "semdex",
		Short:         "Semdex: semantic search over a document tree",
		Long:          "Semdex embeds the files of a document tree and answers similarity queries over them: free-text search, nearest neighbors of a file, and corpus-wide grouping.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging()
			return nil
		},
	}

	// Global flags, mapped to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	// Register subcommands
	root.AddCommand(
		newInitCmd(),
		newIndexCmd(),
		newSearchCmd(),
		newSimilarCmd(),
		newGroupsCmd(),
		newWatchCmd(),
		newSecretCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper wires the global Viper in one place: defaults, env bindings,
// flag bindings, then the optional config file, so every command sees the
// same flag > env > file > defaults precedence.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover semdex.yaml from standard locations.
		// Note: SetConfigType is intentionally omitted. When set, Viper
		// falls back to trying the bare config name without extension,
		// which collides with the ./semdex binary in the project root.
		v.SetConfigName("semdex")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/semdex")
		v.AddConfigPath("/etc/semdex")
		// No config file is fine; defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// No config found anywhere: bootstrap a default to ~/.config/semdex/.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	// Bind persistent flags to viper keys.
	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return semerr.Errorf(semerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return semerr.Errorf(semerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}

// setupLogging routes slog to stderr so command output on stdout stays
// pipeable. Verbose mode lowers the level to debug; the default hides
// routine info chatter from interactive runs.
func setupLogging() {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig resolves keyring references in the initialized global Viper and
// unmarshals it. Only commands that wire the engine call this, so commands
// like version or doctor never touch the OS keyring.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	config.WarnInsecurePermissions(v.ConfigFileUsed())
	if err := secrets.ResolveViperSecrets(v, secretStoreFactory()); err != nil {
		return nil, err
	}
	return config.FromViper(v)
}
