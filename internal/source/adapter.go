// Package source defines the boundary to the on-device health data provider
// and an HTTP client implementation of it.
package source

import (
	"context"
	"time"

	"github.com/meltforce/vitalsync/internal/metrics"
)

// Window bounds a provider query in time.
type Window struct {
	Start time.Time
	End   time.Time
}

// Permission reports the provider's read/write grant for one metric kind.
type Permission struct {
	Kind     metrics.Kind `json:"kind"`
	CanRead  bool         `json:"can_read"`
	CanWrite bool         `json:"can_write"`
}

// Adapter is the query surface of the device health provider.
//
// QueryStatistic serves cumulative kinds: the provider deduplicates
// overlapping coverage from multiple recording sources before totaling, so
// the result is safe to store as-is. A nil result means no data in the window.
//
// QuerySamples serves everything else as raw time-stamped readings.
type Adapter interface {
	CheckPermissions(ctx context.Context) ([]Permission, error)
	QueryStatistic(ctx context.Context, kind metrics.Kind, window Window) (*float64, error)
	QuerySamples(ctx context.Context, kind metrics.Kind, window Window, limit int) ([]metrics.RawSample, error)
}
