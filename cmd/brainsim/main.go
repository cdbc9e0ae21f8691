// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the brainsim CLI. The binary has
// three mode subcommands: gui (graphical shell), cli (console engine
// loop), and text (text-generation tool).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/brainsim/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// openAIKey resolves the API key: explicit value, then .secrets/, then
// the environment (handled downstream by the GPT client).
func openAIKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return loadedSecrets[secrets.OpenAIKeyFile]
}

// rootCmd is the base command for the brainsim CLI.
var rootCmd = &cobra.Command{
	Use:   "brainsim",
	Short: "Brain simulation workbench",
	Long: `brainsim is a brain-simulation workbench: a knowledge store of labeled
Things and weighted relationships, a small neural network engine, and a set
of background agents that grow and prune the knowledge graph.

Modes are subcommands: gui opens the graphical shell, cli runs the engine
headless for a fixed number of ticks, and text is a GPT-backed text
generation tool over the knowledge store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
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
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./brainsim.yaml or ~/.config/brainsim/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("brainsim")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "brainsim"))
		}
	}

	viper.SetDefault("archive.dir", "archive")

	viper.SetEnvPrefix("BRAINSIM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
