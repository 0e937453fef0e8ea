package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/vitalsync/internal/engine"
	"github.com/meltforce/vitalsync/internal/metrics"
	"github.com/meltforce/vitalsync/internal/storage"
)

type fakeEngine struct {
	result   engine.Result
	status   engine.Status
	snapshot *storage.CurrentSnapshotRow
	history  []storage.HistoryLogRow

	gotOpts   engine.Options
	gotUserID string
}

func (f *fakeEngine) Sync(_ context.Context, opts engine.Options) engine.Result {
	f.gotOpts = opts
	return f.result
}

func (f *fakeEngine) SyncStatus() engine.Status { return f.status }

func (f *fakeEngine) StoredSnapshot(_ context.Context, userID string) (*storage.CurrentSnapshotRow, error) {
	f.gotUserID = userID
	if f.snapshot == nil {
		return nil, storage.ErrNotFound
	}
	return f.snapshot, nil
}

func (f *fakeEngine) History(_ context.Context, userID string, _, _ int) ([]storage.HistoryLogRow, error) {
	f.gotUserID = userID
	return f.history, nil
}

type fakeForegrounder struct{ called bool }

func (f *fakeForegrounder) Foreground() { f.called = true }

const testAPIKey = "test-key"

func newTestServer(eng *fakeEngine, fg *fakeForegrounder) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(eng, fg, testAPIKey, log)
}

// TestSyncRequiresAPIKey verifies the mutating endpoint rejects requests
// without a key.
func TestSyncRequiresAPIKey(t *testing.T) {
	srv := newTestServer(&fakeEngine{}, &fakeForegrounder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestSyncReturnsResult verifies a successful pass comes back as 200 with
// the result body.
func TestSyncReturnsResult(t *testing.T) {
	eng := &fakeEngine{result: engine.Result{
		Succeeded:     true,
		MetricsSynced: []metrics.Kind{metrics.Steps},
	}}
	srv := newTestServer(eng, &fakeForegrounder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", strings.NewReader(`{"days_back":3}`))
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if eng.gotOpts.DaysBack != 3 {
		t.Errorf("days_back = %d, want 3", eng.gotOpts.DaysBack)
	}

	var res engine.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded {
		t.Error("response result not marked succeeded")
	}
}

// TestSyncEmptyBody verifies the endpoint accepts a bodyless trigger.
func TestSyncEmptyBody(t *testing.T) {
	eng := &fakeEngine{result: engine.Result{Succeeded: true}}
	srv := newTestServer(eng, &fakeForegrounder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

// TestSyncStatusCodes verifies failure kinds map to distinct HTTP statuses.
func TestSyncStatusCodes(t *testing.T) {
	tests := []struct {
		kind engine.ErrorKind
		want int
	}{
		{engine.ErrKindAlreadyRunning, http.StatusConflict},
		{engine.ErrKindNotAuthenticated, http.StatusUnauthorized},
		{engine.ErrKindNoPermissions, http.StatusForbidden},
		{engine.ErrKindSnapshotWrite, http.StatusInternalServerError},
		{engine.ErrKindUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			eng := &fakeEngine{result: engine.Result{ErrorKind: tt.kind}}
			srv := newTestServer(eng, &fakeForegrounder{})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
			req.Header.Set("X-API-Key", testAPIKey)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestSyncStatusEndpoint verifies status is readable without a key.
func TestSyncStatusEndpoint(t *testing.T) {
	last := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	eng := &fakeEngine{status: engine.Status{IsSyncing: true, LastSyncAt: &last}}
	srv := newTestServer(eng, &fakeForegrounder{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st engine.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if !st.IsSyncing {
		t.Error("is_syncing = false, want true")
	}
	if st.LastSyncAt == nil || !st.LastSyncAt.Equal(last) {
		t.Errorf("last_sync_at = %v, want %v", st.LastSyncAt, last)
	}
}

// TestForegroundEndpoint verifies the wake-up is forwarded to the scheduler.
func TestForegroundEndpoint(t *testing.T) {
	fg := &fakeForegrounder{}
	srv := newTestServer(&fakeEngine{}, fg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/foreground", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if !fg.called {
		t.Error("scheduler wake-up not forwarded")
	}
}

// TestSnapshotEndpoint verifies snapshot reads, including the 404 path.
func TestSnapshotEndpoint(t *testing.T) {
	steps := 8234.0
	eng := &fakeEngine{snapshot: &storage.CurrentSnapshotRow{UserID: "user-1", Steps: &steps}}
	srv := newTestServer(eng, &fakeForegrounder{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot?user=user-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if eng.gotUserID != "user-1" {
		t.Errorf("user = %q, want user-1", eng.gotUserID)
	}

	t.Run("missing user param", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("no snapshot", func(t *testing.T) {
		srv := newTestServer(&fakeEngine{}, &fakeForegrounder{})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot?user=ghost", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

// TestHistoryEndpoint verifies history reads return an array even when empty.
func TestHistoryEndpoint(t *testing.T) {
	srv := newTestServer(&fakeEngine{}, &fakeForegrounder{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?user=user-1&days=7&limit=5", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := strings.TrimSpace(rec.Body.String())
	if body != "[]" {
		t.Errorf("empty history body = %s, want []", body)
	}

	t.Run("bad days param", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history?user=user-1&days=soon", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
