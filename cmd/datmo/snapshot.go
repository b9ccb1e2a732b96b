package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"datmo-go/internal/engine"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Capture the current project state as a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		label, _ := cmd.Flags().GetString("label")
		paths, _ := cmd.Flags().GetStringSlice("paths")
		codeID, _ := cmd.Flags().GetString("code-id")
		environmentID, _ := cmd.Flags().GetString("environment-id")
		fileCollectionID, _ := cmd.Flags().GetString("file-collection-id")
		configFilepath, _ := cmd.Flags().GetString("config-filepath")
		configFilename, _ := cmd.Flags().GetString("config-filename")
		statsFilepath, _ := cmd.Flags().GetString("stats-filepath")
		statsFilename, _ := cmd.Flags().GetString("stats-filename")

		a, err := newApp("SnapshotCreate")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Snapshots.Create(a.Context(), engine.SnapshotCreateInput{
			CodeID:           codeID,
			EnvironmentID:    environmentID,
			FileCollectionID: fileCollectionID,
			Paths:            paths,
			ConfigFilepath:   configFilepath,
			ConfigFilename:   configFilename,
			StatsFilepath:    statsFilepath,
			StatsFilename:    statsFilename,
			Message:          message,
			Label:            label,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created snapshot %s\n", snap.ID)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")

		a, err := newApp("SnapshotList")
		if err != nil {
			return err
		}
		defer a.Close()

		sessionID := ""
		if session != "" {
			s, err := a.Sessions.Find(a.Context(), session)
			if err != nil {
				return err
			}
			sessionID = s.ID
		}

		snapshots, err := a.Snapshots.List(a.Context(), sessionID)
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Println("No snapshots found.")
			return nil
		}

		for _, s := range snapshots {
			fmt.Printf("%s  %s  %-8s  %s\n",
				s.ID,
				s.CreatedAt.Format("2006-01-02 15:04:05"),
				s.Label,
				s.Message,
			)
		}
		return nil
	},
}

var snapshotCheckoutCmd = &cobra.Command{
	Use:   "checkout ID",
	Short: "Restore the working tree and files to a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotCheckout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Snapshots.Checkout(a.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Checked out snapshot %s\n", args[0])
		return nil
	},
}

var snapshotUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a snapshot's message or label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotUpdate")
		if err != nil {
			return err
		}
		defer a.Close()

		var in engine.SnapshotUpdateInput
		if cmd.Flags().Changed("message") {
			message, _ := cmd.Flags().GetString("message")
			in.Message = &message
		}
		if cmd.Flags().Changed("label") {
			label, _ := cmd.Flags().GetString("label")
			in.Label = &label
		}

		snap, err := a.Snapshots.Update(args[0], in)
		if err != nil {
			return err
		}
		fmt.Printf("Updated snapshot %s\n", snap.ID)
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a snapshot record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotDelete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Snapshots.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted snapshot %s\n", args[0])
		return nil
	},
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff ID1 ID2",
	Short: "Compare two snapshots field by field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotDiff")
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Snapshots.Diff(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

var snapshotInspectCmd = &cobra.Command{
	Use:   "inspect ID",
	Short: "Show the full detail of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotInspect")
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Snapshots.Inspect(args[0])
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	snapshotCreateCmd.Flags().StringP("message", "m", "", "Snapshot message")
	snapshotCreateCmd.Flags().StringP("label", "l", "", "Snapshot label")
	snapshotCreateCmd.Flags().StringSlice("paths", nil, "Paths to include (src or src>dstname)")
	snapshotCreateCmd.Flags().String("code-id", "", "Existing code id to reuse")
	snapshotCreateCmd.Flags().String("environment-id", "", "Existing environment id to reuse")
	snapshotCreateCmd.Flags().String("file-collection-id", "", "Existing file collection id to reuse")
	snapshotCreateCmd.Flags().String("config-filepath", "", "JSON file holding the run configuration")
	snapshotCreateCmd.Flags().String("config-filename", "", "Configuration filename searched inside --paths")
	snapshotCreateCmd.Flags().String("stats-filepath", "", "JSON file holding the run metrics")
	snapshotCreateCmd.Flags().String("stats-filename", "", "Metrics filename searched inside --paths")

	snapshotListCmd.Flags().String("session", "", "Restrict to one session")
	snapshotUpdateCmd.Flags().StringP("message", "m", "", "New message")
	snapshotUpdateCmd.Flags().StringP("label", "l", "", "New label")

	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotCheckoutCmd)
	snapshotCmd.AddCommand(snapshotUpdateCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
	snapshotCmd.AddCommand(snapshotDiffCmd)
	snapshotCmd.AddCommand(snapshotInspectCmd)
}
