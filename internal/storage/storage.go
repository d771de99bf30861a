package storage

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
)

// Rejection reasons returned by ShouldSendAlert.
const (
	ReasonRateLimited = "rate_limited"
	ReasonDuplicate   = "duplicate"
)

// AlertStorage persists admitted alerts and answers the rate-limit and
// duplicate queries the alert gate runs before admitting a candidate.
type AlertStorage interface {
	// SaveAlert records an admitted alert.
	SaveAlert(ctx context.Context, alert *types.Alert) error

	// GetRecentAlerts returns alerts from the last hours, newest first.
	GetRecentAlerts(ctx context.Context, hours int) ([]*types.Alert, error)

	// ShouldSendAlert reports whether alert passes the hourly rate limit and
	// the (market, type) duplicate window. The reason is empty when allowed.
	ShouldSendAlert(ctx context.Context, alert *types.Alert, maxPerHour int, dupWindow time.Duration) (bool, string, error)

	// ClearOldAlerts deletes alerts older than maxAge and returns how many
	// were removed.
	ClearOldAlerts(ctx context.Context, maxAge time.Duration) (int64, error)

	// Close releases the storage.
	Close() error
}
