package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"datmo-go/internal/engine"
)

var environmentCmd = &cobra.Command{
	Use:   "environment",
	Short: "Manage execution environments",
}

var environmentSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create a language-default environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp("EnvironmentSetup")
		if err != nil {
			return err
		}
		defer a.Close()

		env, err := a.Environments.Create(a.Context(), engine.EnvironmentCreateInput{
			Language:    language,
			Description: description,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created environment %s (%s)\n", env.ID, env.Language)
		return nil
	},
}

var environmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an environment from a definition file",
	RunE: func(cmd *cobra.Command, args []string) error {
		definition, _ := cmd.Flags().GetString("definition")
		language, _ := cmd.Flags().GetString("language")
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp("EnvironmentCreate")
		if err != nil {
			return err
		}
		defer a.Close()

		env, err := a.Environments.Create(a.Context(), engine.EnvironmentCreateInput{
			DefinitionFilepath: definition,
			Language:           language,
			Description:        description,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created environment %s\n", env.ID)
		return nil
	},
}

var environmentListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EnvironmentList")
		if err != nil {
			return err
		}
		defer a.Close()

		environments, err := a.Environments.List(a.Context())
		if err != nil {
			return err
		}
		if len(environments) == 0 {
			fmt.Println("No environments found.")
			return nil
		}

		for _, env := range environments {
			fmt.Printf("%s  %-8s  %s  %s\n",
				env.ID,
				env.Language,
				env.CreatedAt.Format("2006-01-02 15:04:05"),
				env.Description,
			)
		}
		return nil
	},
}

var environmentDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an environment, its image and its containers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EnvironmentDelete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Environments.Delete(cmd.Context(), a.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted environment %s\n", args[0])
		return nil
	},
}

func init() {
	environmentSetupCmd.Flags().String("language", "", "Language for the default definition (e.g. python3)")
	environmentSetupCmd.Flags().String("description", "", "Environment description")
	environmentCreateCmd.Flags().String("definition", "", "Path to the definition file")
	environmentCreateCmd.Flags().String("language", "", "Language for the environment")
	environmentCreateCmd.Flags().String("description", "", "Environment description")

	environmentCmd.AddCommand(environmentSetupCmd)
	environmentCmd.AddCommand(environmentCreateCmd)
	environmentCmd.AddCommand(environmentListCmd)
	environmentCmd.AddCommand(environmentDeleteCmd)
}
