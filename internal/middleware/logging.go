package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"visiondash/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack is needed for websocket upgrades.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LoggingMiddleware writes one info line per request and recovers panics
// into a 500 so a failing handler never takes the process down.
func LoggingMiddleware(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					logger.Error("Panic serving %s %s: %v", r.Method, r.URL.Path, p)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				logger.Info("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
