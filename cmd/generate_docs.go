package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate CLI command documentation",
		Long: `Generate markdown documentation for all threadkeeper commands.
The output is built by introspecting the registered commands, so it cannot
drift from what the binary actually accepts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.Root(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(root *cobra.Command, outputFile string) error {
	markdown := generateCommandsMarkdown(root)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateCommandsMarkdown(root *cobra.Command) string {
	var sb strings.Builder

	sb.WriteString("# Command Reference\n\n")
	sb.WriteString("This document provides a complete reference of all threadkeeper commands.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the command definitions.\n\n")

	commands := collectCommands(root)
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].CommandPath() < commands[j].CommandPath()
	})

	sb.WriteString("## Table of Contents\n\n")
	for _, cmd := range commands {
		anchor := strings.ToLower(strings.ReplaceAll(cmd.CommandPath(), " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", cmd.CommandPath(), anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Configuration\n\n")
	sb.WriteString("Delivery settings can be provided as flags or environment variables:\n\n")
	sb.WriteString("- **Flags win:** An explicitly set flag always overrides its environment variable\n")
	sb.WriteString("- **Naming:** Each delivery flag documents its `THREADKEEPER_*` environment variable\n")
	sb.WriteString("- **OAuth client:** `GOOGLE_CLIENT_ID` and `GOOGLE_CLIENT_SECRET` configure the OAuth client\n\n")

	for _, cmd := range commands {
		sb.WriteString(generateCommandMarkdown(cmd))
		sb.WriteString("\n")
	}

	return sb.String()
}

// collectCommands flattens the command tree, skipping hidden commands and
// cobra's built-in help and completion commands.
func collectCommands(cmd *cobra.Command) []*cobra.Command {
	var commands []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		if sub.Runnable() {
			commands = append(commands, sub)
		}
		commands = append(commands, collectCommands(sub)...)
	}
	return commands
}

func generateCommandMarkdown(cmd *cobra.Command) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s\n\n", cmd.CommandPath()))

	if cmd.Long != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", cmd.Long))
	} else if cmd.Short != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", cmd.Short))
	}

	flags := collectFlags(cmd)
	if len(flags) > 0 {
		sb.WriteString("**Flags:**\n")
		for _, flag := range flags {
			sb.WriteString(fmt.Sprintf("- `--%s`", flag.Name))
			if flag.DefValue != "" && flag.DefValue != "false" {
				sb.WriteString(fmt.Sprintf(" (default: `%s`)", flag.DefValue))
			}
			sb.WriteString(fmt.Sprintf(": %s\n", flag.Usage))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// collectFlags returns the command's visible local flags sorted by name.
func collectFlags(cmd *cobra.Command) []*pflag.Flag {
	var flags []*pflag.Flag
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		flags = append(flags, f)
	})
	sort.Slice(flags, func(i, j int) bool {
		return flags[i].Name < flags[j].Name
	})
	return flags
}
