package session

import (
	"sync"
	"time"

	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
)

// ConversationLog is the append-only, ordered record of turns for the active
// session. Turns are never mutated, reordered or deleted; Clear is reserved
// for an explicit interview reset.
type ConversationLog struct {
	mu    sync.RWMutex
	turns []interview.Turn
}

// NewConversationLog returns an empty log.
func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

// Append adds one turn at the tail.
func (l *ConversationLog) Append(turn interview.Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
}

// AppendExchange appends a candidate turn and the interviewer turn it
// provoked under one lock, preserving causal order even though both arrive
// in a single backend response.
func (l *ConversationLog) AppendExchange(candidate, interviewer interview.Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, candidate, interviewer)
}

// Snapshot returns a copy of the full ordered sequence.
func (l *ConversationLog) Snapshot() []interview.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]interview.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len reports the number of turns.
func (l *ConversationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Clear empties the log. Only the reset command calls this.
func (l *ConversationLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}

// displayTimestamp formats a turn timestamp the way the transcript shows it.
// Display-only; not meant to be parsed or compared.
func displayTimestamp(t time.Time) string {
	return t.Format("03:04:05 PM")
}
