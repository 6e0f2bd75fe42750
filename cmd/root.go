package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the feishu-tasks application
var rootCmd = &cobra.Command{
	Use:   "feishu-tasks",
	Short: "Feishu task management for AI assistants",
	Long: `feishu-tasks exposes the Feishu (Lark) task and contact APIs as MCP
(Model Context Protocol) tools so AI assistants can create and manage tasks
on behalf of a tenant.

It can run as:
  - An MCP server over stdio (default)
  - An MCP server over streamable HTTP for deployed instances`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "feishu-tasks version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
