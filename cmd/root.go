package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the instagram-dms-mcp application
var rootCmd = &cobra.Command{
	Use:   "instagram-dms-mcp",
	Short: "MCP server for Instagram direct messages",
	Long: `instagram-dms-mcp is a Model Context Protocol (MCP) server that gives AI
assistants access to Instagram direct messages.

It launches and supervises a local Instagram gateway subprocess, assembles
session credentials from the environment, and exposes DM tools (inbox,
message history, send, react, user lookup) over stdio or streamable HTTP.`,
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
	rootCmd.SetVersionTemplate(`{{printf "instagram-dms-mcp version %s\n" .Version}}`)

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
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
