package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calendar-assistant application
var rootCmd = &cobra.Command{
	Use:   "calendar-assistant",
	Short: "MCP server for Google Calendar scheduling",
	Long: `calendar-assistant exposes Google Calendar to AI assistants over the
Model Context Protocol: create and update events, find free slots inside
working hours, and look up what is scheduled at a given time.

Run "calendar-assistant auth" once per Google account, then start the
server with "calendar-assistant serve" (the default command).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Values already present in the environment win over .env.
		_ = godotenv.Load()
	},
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
	rootCmd.SetVersionTemplate(`{{printf "calendar-assistant version %s\n" .Version}}`)

	// If no subcommand is provided, run the MCP server over stdio
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
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
