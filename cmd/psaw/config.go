// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/psaw/internal/secrets"
	"github.com/pdiddy/psaw/pkg/types"
)

// flagKeys maps config keys to the search flags that override them.
var flagKeys = map[string]string{
	"limit":    "limit",
	"format":   "format",
	"proxy":    "proxy",
	"base_url": "base-url",
}

// bindFlags lets changed flags take precedence over the environment and
// config file. Binding happens per run because comments and submissions
// define flags with the same names.
func bindFlags(cmd *cobra.Command) error {
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// apiConfig assembles the archive client settings from viper and secrets.
func apiConfig() types.APIConfig {
	return types.APIConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: viper.GetString("user_agent"),
			Proxy:     viper.GetString("proxy"),
		},
		BaseURL:           viper.GetString("base_url"),
		Token:             secretDefault(secrets.TokenKey, viper.GetString("token")),
		PageSize:          viper.GetInt("page_size"),
		RequestsPerMinute: viper.GetInt("requests_per_minute"),
		MaxRetries:        viper.GetInt("max_retries"),
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective API configuration as YAML",
	Long: `Config prints the archive API settings after merging defaults, the
config file, PSAW_* environment variables, and loaded secrets. The token is
masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := apiConfig()
		if cfg.Token != "" {
			cfg.Token = "********"
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	viper.SetDefault("limit", defaultLimit)
	viper.SetDefault("format", string(types.FormatCSV))
	rootCmd.AddCommand(configCmd)
}
