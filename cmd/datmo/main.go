package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datmo-go/internal/app"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newApp wires an App for the project containing the current directory.
// The caller must defer a.Close(). operation identifies the CLI command
// being run (e.g. "SnapshotCreate", "TaskRun").
func newApp(operation string) (*app.App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}
	return app.New(cwd, operation)
}

var rootCmd = &cobra.Command{
	Use:           "datmo",
	Short:         "Track and reproduce machine-learning experiments",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a project in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}

		a, err := app.Init(cwd, name, description)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Initialized project %q at %s\n", name, cwd)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.Project.Status(a.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Project:   %s\n", status.Model.Name)
		if status.Model.Description != "" {
			fmt.Printf("About:     %s\n", status.Model.Description)
		}
		if status.CurrentSession != nil {
			fmt.Printf("Session:   %s\n", status.CurrentSession.Name)
		}
		fmt.Printf("Snapshots: %d\n", status.SnapshotCount)
		fmt.Printf("Tasks:     %d\n", status.TaskCount)
		if status.LatestSnapshot != nil {
			fmt.Printf("Latest snapshot: %s  %s\n", status.LatestSnapshot.ID, status.LatestSnapshot.Message)
		}
		if status.LatestTask != nil {
			fmt.Printf("Latest task:     %s  %s\n", status.LatestTask.ID, status.LatestTask.Status)
		}
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove everything the engine created for this project",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Cleanup")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Cleanup(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Project cleaned up.")
		return nil
	},
}

func init() {
	initCmd.Flags().String("name", "", "Project name")
	initCmd.Flags().String("description", "", "Project description")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(environmentCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(sessionCmd)
}
