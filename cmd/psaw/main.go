// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the psaw CLI, which searches an
// archive of reddit comments and submissions and saves the results as CSV,
// JSON, YAML, or SQLite.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/psaw/internal/pushshift"
	"github.com/pdiddy/psaw/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ and .env at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

// rootCmd is the base command for the psaw CLI.
var rootCmd = &cobra.Command{
	Use:   "psaw",
	Short: "Search the reddit archive and save comments or submissions",
	Long: `psaw queries a Pushshift-compatible archive for comments or submissions
matching keywords, subreddits, or authors, and writes the matches to disk:
either all into one file (--output) or one file per record named from a
template (--output-template).

Run "psaw comments --help" or "psaw submissions --help" for the search flags.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd)

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		envFile, _ := cmd.Flags().GetString("env-file")
		s, err := secrets.Load(secretsDir, envFile)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./psaw.yaml or ~/.config/psaw/psaw.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of credential files (pushshift-token)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file read for PUSHSHIFT_TOKEN")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log requests and other diagnostics to stderr")

	viper.SetDefault("base_url", pushshift.DefaultBaseURL)
	viper.SetDefault("user_agent", pushshift.DefaultUserAgent)
	viper.SetDefault("timeout", pushshift.DefaultTimeout)
	viper.SetDefault("page_size", pushshift.DefaultPageSize)
	viper.SetDefault("requests_per_minute", pushshift.DefaultPerMinute)
	viper.SetDefault("max_retries", 5)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("psaw")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "psaw"))
		}
	}

	viper.SetEnvPrefix("PSAW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "interrupted")
		}
		os.Exit(1)
	}
}
