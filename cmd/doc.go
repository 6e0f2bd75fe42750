// Package cmd implements the command-line interface for feishu-tasks.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide Feishu task tools for AI assistants
//   - validate: Check that the configured app credentials can obtain a tenant token
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
