package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/meltforce/vitalsync/internal/engine"
	"github.com/meltforce/vitalsync/internal/storage"
)

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var opts engine.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	result := s.engine.Sync(r.Context(), opts)
	writeJSON(w, syncStatusCode(result), result)
}

// syncStatusCode maps a pass result onto an HTTP status. Rejection by the
// single-flight guard is a conflict, not a server fault.
func syncStatusCode(res engine.Result) int {
	if res.Succeeded {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case engine.ErrKindAlreadyRunning:
		return http.StatusConflict
	case engine.ErrKindNotAuthenticated:
		return http.StatusUnauthorized
	case engine.ErrKindNoPermissions:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleForeground(w http.ResponseWriter, r *http.Request) {
	s.foreground.Foreground()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.SyncStatus())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user parameter required"})
		return
	}

	row, err := s.engine.StoredSnapshot(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for user"})
			return
		}
		s.log.Error("snapshot read error", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user parameter required"})
		return
	}

	days, err := intParam(r, "days", 30)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid days parameter"})
		return
	}
	limit, err := intParam(r, "limit", 100)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit parameter"})
		return
	}

	rows, err := s.engine.History(r.Context(), userID, days, limit)
	if err != nil {
		s.log.Error("history read error", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []storage.HistoryLogRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
