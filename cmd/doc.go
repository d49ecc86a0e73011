// Package cmd implements the command-line interface for threadkeeper.
//
// This package provides the following commands:
//   - send: Deliver the digest once into the ongoing conversation
//   - serve: Run the HTTP trigger service for form-submission webhooks
//   - auth: Authorize Google API access and store the OAuth token
//   - state: Inspect or reset the remembered conversation
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all commands
//
// The send command is the default command when no subcommand is specified.
package cmd
