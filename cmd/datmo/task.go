package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"datmo-go/internal/engine"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Run and manage tasks",
}

var taskRunCmd = &cobra.Command{
	Use:   "run -- COMMAND [ARG...]",
	Short: "Run a command inside the project's environment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, _ := cmd.Flags().GetStringSlice("port")
		gpu, _ := cmd.Flags().GetBool("gpu")
		interactive, _ := cmd.Flags().GetBool("interactive")
		detach, _ := cmd.Flags().GetBool("detach")
		environmentID, _ := cmd.Flags().GetString("environment-id")

		if detach && interactive {
			return engine.Errorf(engine.KindMutuallyExclusiveArguments,
				"--detach and --interactive are mutually exclusive")
		}
		if interactive && !term.IsTerminal(int(os.Stdin.Fd())) {
			return engine.Errorf(engine.KindInvalidArgumentType,
				"--interactive requires a terminal on stdin")
		}

		a, err := newApp("TaskRun")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Tasks.Create(a.Context(), engine.TaskCreateInput{
			Command:     args,
			Ports:       ports,
			GPU:         gpu,
			Interactive: interactive,
		})
		if err != nil {
			return err
		}

		t, err = a.Tasks.Run(cmd.Context(), a.Context(), t.ID, engine.TaskRunInput{
			EnvironmentID: environmentID,
			Detach:        detach,
		})
		if err != nil {
			return err
		}

		if detach {
			fmt.Printf("Started task %s (container %s)\n", t.ID, t.ContainerID)
			return nil
		}
		fmt.Print(t.Logs)
		fmt.Printf("Task %s finished: %s\n", t.ID, t.Status)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")

		a, err := newApp("TaskList")
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

		tasks, err := a.Tasks.List(a.Context(), sessionID)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		for _, t := range tasks {
			fmt.Printf("%s  %s  %-7s  %v\n",
				t.ID,
				t.CreatedAt.Format("2006-01-02 15:04:05"),
				t.Status,
				t.Command,
			)
		}
		return nil
	},
}

var taskStopCmd = &cobra.Command{
	Use:   "stop ID",
	Short: "Stop a running task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp("TaskStop")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Tasks.Stop(cmd.Context(), args[0], force); err != nil {
			return err
		}
		fmt.Printf("Stopped task %s\n", args[0])
		return nil
	},
}

var taskRerunCmd = &cobra.Command{
	Use:   "rerun ID",
	Short: "Re-run a past task against its original snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("TaskRerun")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Tasks.Rerun(cmd.Context(), a.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(t.Logs)
		fmt.Printf("Task %s finished: %s\n", t.ID, t.Status)
		return nil
	},
}

func init() {
	taskRunCmd.Flags().StringSliceP("port", "p", nil, "Port mapping host:container")
	taskRunCmd.Flags().Bool("gpu", false, "Expose GPUs to the container")
	taskRunCmd.Flags().BoolP("interactive", "i", false, "Attach stdin to the container")
	taskRunCmd.Flags().BoolP("detach", "d", false, "Start the container and return immediately")
	taskRunCmd.Flags().String("environment-id", "", "Existing environment id to run in")

	taskListCmd.Flags().String("session", "", "Restrict to one session")
	taskStopCmd.Flags().Bool("force", false, "Kill the container outright")

	taskCmd.AddCommand(taskRunCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskStopCmd)
	taskCmd.AddCommand(taskRerunCmd)
}
