// Package store persists the per-resume session state that must survive a
// restart: the clock record and the terminal decision. Everything else in the
// client is rebuilt in memory.
package store

import (
	"context"

	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
)

// Store is the single gateway to persisted session state, keyed by resume id.
// Writes are last-write-wins and idempotent; re-writing the same decision is
// harmless.
type Store interface {
	GetClock(ctx context.Context, resumeID string) (interview.ClockRecord, bool, error)
	SetClock(ctx context.Context, resumeID string, rec interview.ClockRecord) error
	ClearClock(ctx context.Context, resumeID string) error

	GetDecision(ctx context.Context, resumeID string) (interview.Decision, bool, error)
	SetDecision(ctx context.Context, resumeID string, d interview.Decision) error
	ClearDecision(ctx context.Context, resumeID string) error

	Close() error
}
