package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the threadkeeper application
var rootCmd = &cobra.Command{
	Use:   "threadkeeper",
	Short: "Delivers spreadsheet digests into one ongoing Gmail conversation",
	Long: `threadkeeper reads a tracking spreadsheet and the latest form comment,
renders them into an HTML digest, and delivers the digest into a single
ongoing Gmail conversation instead of starting a new thread every time.

It can run as:
  - A one-shot CLI delivery (default)
  - An HTTP trigger service for form-submission webhooks`,
	SilenceUsage: true,
}

// version is injected by main at startup
var version = "dev"

// SetVersion records the build version on the root command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "threadkeeper version %s\n" .Version}}`)

	// If no subcommand is provided, run the send command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "send")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// configureLogging installs the process-wide slog text handler. Debug mode
// lowers the level to Debug.
func configureLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func init() {
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newStateCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
