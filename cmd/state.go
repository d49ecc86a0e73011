package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/threadkeeper/internal/state"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the remembered conversation",
		Long: `Inspect or reset the thread state that links consecutive deliveries
into one ongoing conversation.`,
	}

	cmd.AddCommand(newStateShowCmd())
	cmd.AddCommand(newStateResetCmd())

	return cmd
}

func newStateShowCmd() *cobra.Command {
	var stateFile string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the remembered thread IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveStatePath(stateFile)
			if err != nil {
				return err
			}
			store := state.NewFileStore(path)

			threadID, ok, err := store.Get(state.KeyThreadID)
			if err != nil {
				return err
			}
			if !ok || threadID == "" {
				threadID = "<none>"
			}

			lastThreadID, ok, err := store.Get(state.KeyLastThreadID)
			if err != nil {
				return err
			}
			if !ok || lastThreadID == "" {
				lastThreadID = "<none>"
			}

			fmt.Printf("State file: %s\n", path)
			fmt.Printf("  %s: %s\n", state.KeyThreadID, threadID)
			fmt.Printf("  %s: %s\n", state.KeyLastThreadID, lastThreadID)
			return nil
		},
	}

	cmd.Flags().StringVar(&stateFile, "state-file", "", "Path of the thread state file. Defaults to the user cache directory. Can also use THREADKEEPER_STATE_FILE env var.")

	return cmd
}

func newStateResetCmd() *cobra.Command {
	var stateFile string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the remembered conversation",
		Long: `Clear the remembered thread ID so the next delivery starts a fresh
conversation. The current thread ID is archived the same way a regular
thread replacement archives it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveStatePath(stateFile)
			if err != nil {
				return err
			}
			store := state.NewFileStore(path)

			current, ok, err := store.Get(state.KeyThreadID)
			if err != nil {
				return err
			}
			if !ok || current == "" {
				fmt.Println("No conversation is remembered; nothing to reset.")
				return nil
			}

			if err := store.Set(state.KeyLastThreadID, current); err != nil {
				return fmt.Errorf("archiving thread id: %w", err)
			}
			if err := store.Set(state.KeyThreadID, ""); err != nil {
				return fmt.Errorf("clearing thread id: %w", err)
			}

			fmt.Printf("Forgot thread %s; the next delivery will start a new conversation.\n", current)
			return nil
		},
	}

	cmd.Flags().StringVar(&stateFile, "state-file", "", "Path of the thread state file. Defaults to the user cache directory. Can also use THREADKEEPER_STATE_FILE env var.")

	return cmd
}

// resolveStatePath applies the flag, the environment variable and the
// platform default, in that order.
func resolveStatePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if path := os.Getenv("THREADKEEPER_STATE_FILE"); path != "" {
		return path, nil
	}
	return state.DefaultPath()
}
