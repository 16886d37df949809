package services

import (
	"context"
	"time"
)

// Day truncates a timestamp to its UTC calendar date. Every operation
// computes its day exactly once at the boundary and passes it down, so a
// request straddling midnight stays on one date throughout.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Ledger enforces at most one send per (user, group, calendar day). The
// store's uniqueness constraint, not the HasSentToday read, decides
// concurrent submissions.
type Ledger struct {
	store DailySendStore
}

// NewLedger creates a new daily send ledger
func NewLedger(store DailySendStore) *Ledger {
	return &Ledger{store: store}
}

// HasSentToday checks whether the user already sent to the group on day
func (l *Ledger) HasSentToday(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
	return l.store.HasSent(ctx, userID, groupID, day)
}

// MarkSent records the send; apperr.Conflict means another request won the day
func (l *Ledger) MarkSent(ctx context.Context, userID, groupID string, day time.Time) error {
	return l.store.Mark(ctx, userID, groupID, day)
}
