package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/config"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/httpbackend"
	"github.com/vk/bracketflow/internal/memorybackend"
	"github.com/vk/bracketflow/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	editor     *config.Config
	backend    backend.Backend
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	httpServer *http.Server
}

// Option customizes an App. It is used by tests.
type Option func(*App)

// WithBackend replaces the backend the config would select.
func WithBackend(b backend.Backend) Option {
	return func(a *App) { a.backend = b }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and metrics
// registry. A configuration error is a fatal startup error and panics.
func NewApp(outW io.Writer, appConfig *Config, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	editorCfg, err := config.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Editor configuration loaded.", "league_id", editorCfg.LeagueID, "canvas", editorCfg.Canvas)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		editor:   editorCfg,
		registry: reg,
		metrics:  metrics.New(reg),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.backend == nil {
		b, err := a.newBackend(ctx)
		if err != nil {
			panic(err)
		}
		a.backend = b
	}
	return a
}

// newBackend selects the backend from the run configuration.
func (a *App) newBackend(ctx context.Context) (backend.Backend, error) {
	logger := ctxlog.FromContext(ctx)
	if a.config.Offline {
		mem := memorybackend.New(a.editor.LeagueID)
		if a.config.SeedPath != "" {
			if err := seed(mem, a.config.SeedPath); err != nil {
				return nil, err
			}
		}
		logger.Info("Running offline against an in-memory backend.", "seed", a.config.SeedPath)
		return mem, nil
	}
	if a.editor.Backend == nil {
		return nil, fmt.Errorf("%s: a backend block is required unless running offline", a.config.ConfigPath)
	}
	c, err := httpbackend.New(httpbackend.Options{
		BaseURL: a.editor.Backend.URL,
		Timeout: a.editor.Backend.TimeoutDuration(),
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("HTTP backend configured.", "url", a.editor.Backend.URL)
	return c, nil
}

// seed loads a flow state document into an in-memory backend.
func seed(mem *memorybackend.Backend, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed %s: %w", path, err)
	}
	var state backend.FlowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("failed to decode seed %s: %w", path, err)
	}
	nodes, _, err := state.Graph()
	if err != nil {
		return fmt.Errorf("invalid seed %s: %w", path, err)
	}
	mem.Seed(nodes, state.Edges)
	return nil
}

// Backend returns the backend the app edits against. This is primarily for
// testing.
func (a *App) Backend() backend.Backend {
	return a.backend
}
