package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"visiondash/internal/config"
	"visiondash/internal/logger"
	"visiondash/internal/repository"
	"visiondash/internal/repository/sqlite"
	"visiondash/internal/route"
	"visiondash/internal/service"
	"visiondash/internal/service/ai"
	"visiondash/internal/service/session"
	"visiondash/internal/service/storage"
	"visiondash/internal/service/websocket"
	"visiondash/internal/view"
)

// App owns every long-lived service of the dashboard process.
type App struct {
	config        *config.Config
	logger        *logger.Logger
	registry      *ai.Registry
	pipeline      *service.Pipeline
	sessions      *session.Store
	hubService    *websocket.HubService
	bufferService *storage.BufferService
	db            *sqlite.DB
	handler       http.Handler
}

// NewApp builds the services from cfg. Missing model files are not fatal:
// the dashboard starts and reports them.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	open, err := ai.NewOpener(cfg.InferenceBackend, cfg.ONNXRuntimeLib)
	if err != nil {
		return nil, err
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}

	a := &App{
		config:     cfg,
		logger:     log,
		registry:   ai.NewRegistry(),
		sessions:   session.NewStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		hubService: websocket.NewHubService(log),
	}

	var (
		runRepo       repository.RunRepository
		detectionRepo repository.DetectionRepository
		history       service.Recorder
	)
	if cfg.HistoryEnabled() {
		db, err := sqlite.New(cfg.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		a.db = db
		runs := sqlite.NewRunRepository(db)
		detections := sqlite.NewDetectionRepository(db)
		runRepo, detectionRepo = runs, detections
		a.bufferService = storage.NewBufferService(cfg, log, runs, detections)
		history = a.bufferService
	}

	a.pipeline = service.NewPipeline(cfg, log, ai.NewLoader(a.registry, open), a.hubService, history)

	a.handler = route.SetupRoutes(route.Deps{
		Config:        cfg,
		Logger:        log,
		Pipeline:      a.pipeline,
		Sessions:      a.sessions,
		Hub:           a.hubService,
		Renderer:      renderer,
		RunRepo:       runRepo,
		DetectionRepo: detectionRepo,
	})
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and
// flushes pending history.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.runBackground(bgCtx)
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	status := a.pipeline.Status()
	a.logger.Info("Vision dashboard listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Backend: %s, detection: %s, classification: %s, history: %t",
		status.Backend, sourceOrError(status.Detection.Source, status.Detection.Error),
		sourceOrError(status.Classification.Source, status.Classification.Error), status.HistoryEnabled)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = server.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	stopBackground()
	<-done
	return errors.Join(err, a.Close())
}

func (a *App) runBackground(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.hubService.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.sessions.Run(ctx, time.Minute)
	}()
	if a.bufferService != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.bufferService.Run(ctx)
		}()
	}
	wg.Wait()
}

// Close releases models and the history database.
func (a *App) Close() error {
	var errs []error
	if err := a.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sourceOrError(source, errText string) string {
	if source != "" {
		return source
	}
	return "unavailable (" + errText + ")"
}
