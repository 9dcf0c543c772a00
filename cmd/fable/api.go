package main

import (
	"github.com/spf13/cobra"

	"github.com/fablepress/fable/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Fable server via HTTP.

These commands require a running server (fable serve).
Use --server to specify a custom server URL.

Examples:
  fable api health                              # Check server health
  fable api stories                             # List story templates
  fable api jobs create --photo kid.jpg --name Maya
  fable api jobs get <job_id>                   # Poll job progress
  fable api jobs download <job_id>              # Save the finished PDF`,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Storybook job commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health and stories at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListStoriesEndpoint{}).Command(getServerURL))

	// Jobs as subcommand group
	for _, ep := range endpoints.JobCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			jobsCmd.AddCommand(cmd)
		}
	}

	apiCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(apiCmd)
}
