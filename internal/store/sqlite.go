package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
)

// SQLiteStore persists session state in an embedded SQLite database. One row
// per resume id holds both the clock pair and the decision; a NULL column
// means the corresponding key is absent.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

// NewSQLiteStore opens (and if necessary creates) the database at dsn and
// applies the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("session store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "session store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		resume_id TEXT PRIMARY KEY,
		clock_start_ms INTEGER,
		clock_budget_s INTEGER,
		decision TEXT,
		updated_at_ms INTEGER NOT NULL
	)`)
	return errors.Wrap(err, "session store: migrate")
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) GetClock(ctx context.Context, resumeID string) (interview.ClockRecord, bool, error) {
	var startMs, budget sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT clock_start_ms, clock_budget_s FROM sessions WHERE resume_id = ?`, resumeID).
		Scan(&startMs, &budget)
	if err == sql.ErrNoRows {
		return interview.ClockRecord{}, false, nil
	}
	if err != nil {
		return interview.ClockRecord{}, false, errors.Wrap(err, "session store: get clock")
	}
	if !startMs.Valid || !budget.Valid {
		return interview.ClockRecord{}, false, nil
	}
	return interview.ClockRecord{
		StartTime:     time.UnixMilli(startMs.Int64).UTC(),
		BudgetSeconds: int(budget.Int64),
	}, true, nil
}

func (s *SQLiteStore) SetClock(ctx context.Context, resumeID string, rec interview.ClockRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (resume_id, clock_start_ms, clock_budget_s, updated_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(resume_id) DO UPDATE SET
			clock_start_ms = excluded.clock_start_ms,
			clock_budget_s = excluded.clock_budget_s,
			updated_at_ms = excluded.updated_at_ms`,
		resumeID, rec.StartTime.UnixMilli(), rec.BudgetSeconds, time.Now().UnixMilli())
	return errors.Wrap(err, "session store: set clock")
}

func (s *SQLiteStore) ClearClock(ctx context.Context, resumeID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET clock_start_ms = NULL, clock_budget_s = NULL, updated_at_ms = ? WHERE resume_id = ?`,
		time.Now().UnixMilli(), resumeID)
	return errors.Wrap(err, "session store: clear clock")
}

func (s *SQLiteStore) GetDecision(ctx context.Context, resumeID string) (interview.Decision, bool, error) {
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT decision FROM sessions WHERE resume_id = ?`, resumeID).Scan(&payload)
	if err == sql.ErrNoRows {
		return interview.Decision{}, false, nil
	}
	if err != nil {
		return interview.Decision{}, false, errors.Wrap(err, "session store: get decision")
	}
	if !payload.Valid || payload.String == "" {
		return interview.Decision{}, false, nil
	}
	var d interview.Decision
	if err := json.Unmarshal([]byte(payload.String), &d); err != nil {
		return interview.Decision{}, false, errors.Wrap(err, "session store: decode decision")
	}
	return d, true, nil
}

func (s *SQLiteStore) SetDecision(ctx context.Context, resumeID string, d interview.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "session store: encode decision")
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (resume_id, decision, updated_at_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(resume_id) DO UPDATE SET
			decision = excluded.decision,
			updated_at_ms = excluded.updated_at_ms`,
		resumeID, string(payload), time.Now().UnixMilli())
	return errors.Wrap(err, "session store: set decision")
}

func (s *SQLiteStore) ClearDecision(ctx context.Context, resumeID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET decision = NULL, updated_at_ms = ? WHERE resume_id = ?`,
		time.Now().UnixMilli(), resumeID)
	return errors.Wrap(err, "session store: clear decision")
}
