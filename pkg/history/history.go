// Package history keeps a bounded log of generation cycles in SQLite so
// operators can see what each scheduled or manual trigger did.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Cycle is one recorded trigger outcome.
type Cycle struct {
	ID        int64  `json:"id"`
	TriggerID string `json:"trigger_id"`

	// Source is what fired the trigger: "startup", "schedule" or "manual".
	Source string `json:"source"`

	// Outcome is "bootstrapped", "rotated" or "failed".
	Outcome string `json:"outcome"`

	// Reason qualifies a failed outcome.
	Reason string `json:"reason,omitempty"`

	Window         string         `json:"window"`
	Published      int            `json:"published"`
	Rotated        int            `json:"rotated"`
	Skipped        int            `json:"skipped"`
	Deleted        int            `json:"deleted"`
	DeleteFailures int            `json:"delete_failures"`
	Live           int            `json:"live"`
	PerCategory    map[string]int `json:"per_category,omitempty"`
	Error          string         `json:"error,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trigger_id TEXT NOT NULL,
	source TEXT NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT,
	rop_window TEXT,
	published INTEGER NOT NULL DEFAULT 0,
	rotated INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0,
	delete_failures INTEGER NOT NULL DEFAULT 0,
	live INTEGER NOT NULL DEFAULT 0,
	per_category TEXT,
	error TEXT,
	started_at INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
`

// Config configures a Store.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// MaxCycles bounds the number of retained cycles. Zero keeps everything.
	MaxCycles int

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Store is the SQLite-backed cycle log.
type Store struct {
	db        *sql.DB
	maxCycles int
	logger    *slog.Logger
	closeOnce sync.Once

	insertStmt *sql.Stmt
	listStmt   *sql.Stmt
	trimStmt   *sql.Stmt
}

// Open opens or creates the cycle log.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{
		db:        db,
		maxCycles: cfg.MaxCycles,
		logger:    slog.Default().With("component", "history"),
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *Store) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO cycles (
			trigger_id, source, outcome, reason, rop_window,
			published, rotated, skipped, deleted, delete_failures, live,
			per_category, error, started_at, duration_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, trigger_id, source, outcome, reason, rop_window,
			published, rotated, skipped, deleted, delete_failures, live,
			per_category, error, started_at, duration_ns
		FROM cycles
		ORDER BY id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("prepare list: %w", err)
	}

	s.trimStmt, err = s.db.Prepare(`
		DELETE FROM cycles WHERE id <= (SELECT MAX(id) FROM cycles) - ?
	`)
	if err != nil {
		return fmt.Errorf("prepare trim: %w", err)
	}

	return nil
}

// Record appends c and trims the log to MaxCycles. It returns the new id.
func (s *Store) Record(ctx context.Context, c Cycle) (int64, error) {
	var perCategory any
	if len(c.PerCategory) > 0 {
		b, err := json.Marshal(c.PerCategory)
		if err != nil {
			return 0, fmt.Errorf("encode per-category counts: %w", err)
		}
		perCategory = string(b)
	}

	res, err := s.insertStmt.ExecContext(ctx,
		c.TriggerID, c.Source, c.Outcome, nullString(c.Reason), nullString(c.Window),
		c.Published, c.Rotated, c.Skipped, c.Deleted, c.DeleteFailures, c.Live,
		perCategory, nullString(c.Error), c.StartedAt.UnixNano(), int64(c.Duration),
	)
	if err != nil {
		return 0, fmt.Errorf("insert cycle: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert cycle: %w", err)
	}

	if _, err := s.Trim(ctx); err != nil {
		s.logger.Warn("failed to trim cycle history", "error", err)
	}
	return id, nil
}

// List returns up to limit cycles, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Cycle, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.listStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	cycles := []Cycle{}
	for rows.Next() {
		var c Cycle
		var reason, window, perCategory, errMsg sql.NullString
		var startedAt, duration int64
		if err := rows.Scan(
			&c.ID, &c.TriggerID, &c.Source, &c.Outcome, &reason, &window,
			&c.Published, &c.Rotated, &c.Skipped, &c.Deleted, &c.DeleteFailures, &c.Live,
			&perCategory, &errMsg, &startedAt, &duration,
		); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}

		c.Reason = reason.String
		c.Window = window.String
		c.Error = errMsg.String
		c.StartedAt = time.Unix(0, startedAt).UTC()
		c.Duration = time.Duration(duration)
		if perCategory.Valid {
			if err := json.Unmarshal([]byte(perCategory.String), &c.PerCategory); err != nil {
				return nil, fmt.Errorf("decode per-category counts: %w", err)
			}
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return cycles, nil
}

// Trim removes the oldest cycles beyond MaxCycles and returns how many were
// removed.
func (s *Store) Trim(ctx context.Context) (int64, error) {
	if s.maxCycles <= 0 {
		return 0, nil
	}
	res, err := s.trimStmt.ExecContext(ctx, s.maxCycles)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.insertStmt, s.listStmt, s.trimStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
