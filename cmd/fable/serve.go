package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fablepress/fable/internal/backend"
	"github.com/fablepress/fable/internal/config"
	"github.com/fablepress/fable/internal/home"
	"github.com/fablepress/fable/internal/pipeline"
	"github.com/fablepress/fable/internal/progress"
	"github.com/fablepress/fable/internal/server"
	"github.com/fablepress/fable/internal/storage"
	"github.com/fablepress/fable/internal/story"
	"github.com/fablepress/fable/internal/svcctx"
	"github.com/fablepress/fable/internal/vision"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Fable server",
	Long: `Start the Fable HTTP server.

The server accepts storybook jobs, generates pages in parallel, and
serves progress, previews, and the finished PDF.

Examples:
  fable serve                    # Start on default port 8080
  fable serve --port 3000        # Start on custom port
  fable serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Load configuration with hot reload
		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()
		cfg := cfgMgr.Get()

		// Get home directory; --home beats storage_root beats ~/.fable
		root := homeDir
		if root == "" {
			root = cfg.StorageRoot
		}
		h, err := home.New(root)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Seed built-in story templates; local edits win
		stories := story.NewStore(h.StoriesPath())
		if err := stories.EnsureDefaults(); err != nil {
			return err
		}

		services, err := buildServices(cfg, cfgMgr, h, stories, logger)
		if err != nil {
			return err
		}

		host := serveHost
		if host == "" {
			host = cfg.Server.Host
		}
		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}

		srv, err := server.New(server.Config{
			Host:     host,
			Port:     port,
			Services: services,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

// buildServices wires the whole job pipeline from configuration.
func buildServices(cfg *config.Config, cfgMgr *config.Manager, h *home.Dir, stories *story.Store, logger *slog.Logger) (*svcctx.Services, error) {
	store := storage.NewFS(h)

	imageBackend, err := buildBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	hub := progress.NewHub()
	tracker, err := buildTracker(cfg, hub, logger)
	if err != nil {
		return nil, err
	}

	var describer vision.Describer
	if cfg.Vision.Enabled {
		describer = vision.NewOpenAIDescriber(vision.Config{
			APIKey: cfg.ResolvedVisionKey(),
			Model:  cfg.Vision.Model,
		})
	}

	policy := backend.NewRetryPolicy(cfg.Jobs.RetryAttempts, logger)

	p := &pipeline.Pipeline{
		Backend:    imageBackend,
		Fallback:   backend.NewFallbackRenderer(),
		Policy:     policy,
		Tracker:    tracker,
		Store:      store,
		Stories:    stories,
		Describer:  describer,
		Logger:     logger,
		Workers:    cfg.Jobs.Workers,
		JobTimeout: time.Duration(cfg.Jobs.TimeoutSeconds) * time.Second,
		PageSize:   cfg.Jobs.PageSize,
	}

	return &svcctx.Services{
		JobManager: pipeline.NewManager(p, tracker, logger),
		Tracker:    tracker,
		Hub:        hub,
		Store:      store,
		Stories:    stories,
		Backend:    imageBackend,
		ConfigMgr:  cfgMgr,
		Logger:     logger,
		Home:       h,
	}, nil
}

func buildBackend(cfg *config.Config, logger *slog.Logger) (backend.Backend, error) {
	switch cfg.Backend.Type {
	case "openai", "":
		key := cfg.ResolvedBackendKey()
		if key == "" {
			return nil, fmt.Errorf("backend api key not set (export OPENAI_API_KEY or set backend.api_key)")
		}
		logger.Info("using openai image backend", "model", cfg.Backend.Model)
		return backend.NewOpenAIClient(backend.OpenAIConfig{
			APIKey:    key,
			Model:     cfg.Backend.Model,
			Size:      cfg.Backend.Size,
			Quality:   cfg.Backend.Quality,
			RateLimit: cfg.Backend.RateLimit,
			BaseURL:   cfg.Backend.BaseURL,
		}), nil
	case "fallback":
		// Local rendering only, no API calls. Useful for development.
		logger.Info("using local fallback backend")
		return backend.NewFallbackRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
	}
}

func buildTracker(cfg *config.Config, hub *progress.Hub, logger *slog.Logger) (progress.Tracker, error) {
	if cfg.Progress.RedisURL == "" {
		logger.Info("using in-memory progress tracker")
		return progress.WithNotifier(progress.NewMemoryTracker(), hub), nil
	}

	rt, err := progress.NewRedisTracker(cfg.Progress.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis tracker: %w", err)
	}
	logger.Info("using redis progress tracker")
	return progress.WithNotifier(rt, hub), nil
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
