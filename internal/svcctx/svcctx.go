// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/fablepress/fable/internal/backend"
	"github.com/fablepress/fable/internal/config"
	"github.com/fablepress/fable/internal/home"
	"github.com/fablepress/fable/internal/pipeline"
	"github.com/fablepress/fable/internal/progress"
	"github.com/fablepress/fable/internal/storage"
	"github.com/fablepress/fable/internal/story"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	JobManager *pipeline.Manager
	Tracker    progress.Tracker
	Hub        *progress.Hub
	Store      storage.Store
	Stories    *story.Store
	Backend    backend.Backend
	ConfigMgr  *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// JobManagerFrom extracts the job manager from context.
func JobManagerFrom(ctx context.Context) *pipeline.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobManager
	}
	return nil
}

// TrackerFrom extracts the progress tracker from context.
func TrackerFrom(ctx context.Context) progress.Tracker {
	if s := ServicesFrom(ctx); s != nil {
		return s.Tracker
	}
	return nil
}

// HubFrom extracts the progress event hub from context.
func HubFrom(ctx context.Context) *progress.Hub {
	if s := ServicesFrom(ctx); s != nil {
		return s.Hub
	}
	return nil
}

// StoreFrom extracts the artifact store from context.
func StoreFrom(ctx context.Context) storage.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// StoriesFrom extracts the story template store from context.
func StoriesFrom(ctx context.Context) *story.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Stories
	}
	return nil
}

// BackendFrom extracts the image backend from context.
func BackendFrom(ctx context.Context) backend.Backend {
	if s := ServicesFrom(ctx); s != nil {
		return s.Backend
	}
	return nil
}

// ConfigMgrFrom extracts the config manager from context.
func ConfigMgrFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigMgr
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
