// Package endpoints defines the HTTP surface of the Fable server. Each
// endpoint pairs a route with its CLI command per api.Endpoint.
package endpoints

import (
	"github.com/fablepress/fable/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Job endpoints
		&CreateJobEndpoint{},
		&GetJobEndpoint{},
		&JobPreviewsEndpoint{},
		&JobEventsEndpoint{},
		&DownloadJobEndpoint{},

		// Story templates
		&ListStoriesEndpoint{},

		// Preview artifacts
		&PreviewEndpoint{},
	}
}

// JobCommands returns endpoints for job operations. This groups
// job-related commands under the "jobs" subcommand.
func JobCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateJobEndpoint{},
		&GetJobEndpoint{},
		&JobPreviewsEndpoint{},
		&DownloadJobEndpoint{},
	}
}
