package route

import (
	"net/http"

	"visiondash/internal/config"
	"visiondash/internal/handler"
	"visiondash/internal/logger"
	"visiondash/internal/middleware"
	"visiondash/internal/repository"
	"visiondash/internal/service"
	"visiondash/internal/service/session"
	"visiondash/internal/service/websocket"
	"visiondash/internal/view"
)

// Deps is everything the HTTP layer needs. RunRepo and DetectionRepo are nil
// when run history is disabled.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Pipeline      *service.Pipeline
	Sessions      *session.Store
	Hub           *websocket.HubService
	Renderer      *view.Renderer
	RunRepo       repository.RunRepository
	DetectionRepo repository.DetectionRepository
}

// SetupRoutes registers the dashboard, API, log and auth endpoints and wraps
// the mux with the authentication and request logging middleware.
func SetupRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	cfg, logger := d.Config, d.Logger

	// Dashboard
	mux.HandleFunc("GET /{$}", handler.DashboardHandler(cfg, d.Pipeline, d.Sessions, d.Renderer, logger))
	mux.HandleFunc("POST /upload", handler.UploadHandler(cfg, d.Sessions, logger))
	mux.HandleFunc("POST /run", handler.RunHandler(d.Pipeline, d.Sessions, logger))
	mux.HandleFunc("GET /image/{kind}", handler.ImageHandler(d.Sessions, logger))
	mux.HandleFunc("POST /models/detection", handler.ModelUploadHandler(cfg, d.Pipeline, d.Sessions, logger))

	// API endpoints
	mux.HandleFunc("POST /api/analyze", handler.AnalyzeHandler(cfg, d.Pipeline, logger))
	mux.HandleFunc("GET /api/status", handler.StatusHandler(d.Pipeline, logger))
	mux.HandleFunc("GET /api/runs", handler.RunsHandler(d.RunRepo, d.DetectionRepo, logger))
	mux.HandleFunc("GET /api/events", handler.EventsHandler(d.Hub, logger))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("GET /logs/"+level, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("POST /logs/"+level+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("GET /login", handler.LoginPageHandler(cfg, d.Renderer, logger))
	mux.HandleFunc("POST /auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Apply middleware
	return middleware.LoggingMiddleware(logger)(middleware.AuthMiddleware(cfg)(mux))
}
