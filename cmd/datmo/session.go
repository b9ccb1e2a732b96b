package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SessionCreate")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Sessions.Create(a.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created session %s\n", s.Name)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SessionList")
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.Sessions.List(a.Context())
		if err != nil {
			return err
		}
		for _, s := range sessions {
			marker := " "
			if s.Current {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, s.Name, s.ID)
		}
		return nil
	},
}

var sessionSelectCmd = &cobra.Command{
	Use:   "select NAME",
	Short: "Make a session current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SessionSelect")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SelectSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("Selected session %s\n", args[0])
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SessionDelete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Sessions.Delete(a.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionSelectCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}
