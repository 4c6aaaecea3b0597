package interview

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidResumeID marks a resume identifier that is not a canonical UUID.
// It is terminal: the session cannot proceed and must not be retried.
var ErrInvalidResumeID = errors.New("resume id must be a canonical UUID")

// ClockRecord is the persisted half of the session clock: the wall-clock
// instant the session started and its fixed budget. Its presence means the
// session is in progress or later.
type ClockRecord struct {
	StartTime     time.Time `json:"startTime"`
	BudgetSeconds int       `json:"duration"`
}

// Remaining derives the seconds left at the given instant. Never negative.
func (c ClockRecord) Remaining(now time.Time) int {
	elapsed := int(now.Sub(c.StartTime).Seconds())
	remaining := c.BudgetSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ValidateResumeID checks the identifier against the canonical dashed UUID
// form the backend requires. Case-insensitive, no braces or urn prefixes.
func ValidateResumeID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidResumeID
	}
	if strings.ToLower(id) != u.String() {
		return ErrInvalidResumeID
	}
	return nil
}
