package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"datmo-go/internal/app"
	"datmo-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the user configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := app.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		if err := config.Init(path, config.NewConfig()); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := app.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Git:              %s\n", cfg.GitExecPath)
		fmt.Printf("Docker:           %s\n", cfg.DockerExecPath)
		fmt.Printf("Docker socket:    %s\n", cfg.DockerSocket)
		fmt.Printf("Scanner:          %s\n", cfg.ScannerExecPath)
		fmt.Printf("Default language: %s\n", cfg.DefaultLanguage)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
