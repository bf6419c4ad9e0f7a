/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/recipeapp/apiserver/config"
	"github.com/recipeapp/apiserver/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recipeapi",
	Short: "Recipe API server and tooling",
	Long: `recipeapi serves the recipe REST API and bundles its operational
commands: database migrations and superuser creation.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and initialises the process logger
// from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	return cfg, nil
}
