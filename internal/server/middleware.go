package server

import (
	"log/slog"
	"net/http"
	"time"
)

// APIKeyAuth guards the mutating sync routes with the X-API-Key header.
// Errors come back as JSON like every other response on this surface.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Header.Get("X-API-Key") {
			case "":
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing API key"})
			case apiKey:
				next.ServeHTTP(w, r)
			default:
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid API key"})
			}
		})
	}
}

// RequestLogging logs one line per request with its final status.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"elapsed", time.Since(start).Round(time.Millisecond).String(),
			)
		})
	}
}

// corsHeaders is the allow-list for this surface: JSON bodies plus the sync
// API key, over the three methods the router actually serves.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, X-API-Key",
}

// CORS answers preflights and stamps the allow-list on every response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the status code for the request log; handlers that
// never call WriteHeader count as 200.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
