package notification

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema creates the notification table.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY,
    node_name TEXT,
    data_type TEXT,
    node_type TEXT,
    file_location TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_data_type ON notifications(data_type);
CREATE INDEX IF NOT EXISTS idx_notifications_node_type ON notifications(node_type);
`

// SQLiteConfig configures a SQLiteSink.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long writers wait on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteSink persists notifications so file lookups survive restarts. Ids
// continue from the larger of the stored maximum and the current time.
type SQLiteSink struct {
	db     *sql.DB
	insert *sql.Stmt
	logger *slog.Logger

	mu     sync.Mutex
	lastID int64
}

// NewSQLiteSink opens or creates the database at cfg.Path.
func NewSQLiteSink(cfg SQLiteConfig) (*SQLiteSink, error) {
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	logger := slog.Default().With("component", "notification.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, NewSinkError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteSink{db: db, logger: logger}
	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("notification store opened", "path", cfg.Path, "next_id", s.lastID+1)
	return s, nil
}

func (s *SQLiteSink) initialize(cfg SQLiteConfig) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewSinkError("sqlite", "enable_wal", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		return NewSinkError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return NewSinkError("sqlite", "create_schema", err)
	}

	var maxID sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM notifications").Scan(&maxID); err != nil {
		return NewSinkError("sqlite", "max_id", err)
	}
	s.lastID = max(maxID.Int64, time.Now().UnixMilli())

	stmt, err := s.db.Prepare(`INSERT INTO notifications
		(id, node_name, data_type, node_type, file_location, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return NewSinkError("sqlite", "prepare_insert", err)
	}
	s.insert = stmt
	return nil
}

// Append stores n under the next id.
func (s *SQLiteSink) Append(ctx context.Context, n Notice) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := n.record(s.lastID + 1)
	if _, err := s.insert.ExecContext(ctx, r.ID,
		nullable(r.NodeName), nullable(r.DataType), nullable(r.NodeType), nullable(r.FileLocation),
		time.Now().UTC(),
	); err != nil {
		return Record{}, NewSinkError("sqlite", "append", err)
	}
	s.lastID = r.ID
	return r, nil
}

// Query returns matching records in id order. Node type and id clauses are
// evaluated in SQL; the data type glob is applied while scanning.
func (s *SQLiteSink) Query(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where = []string{"id > ?"}
		args  = []any{f.AfterID}
	)
	if f.NodeType != "" {
		where = append(where, "node_type = ?")
		args = append(args, f.NodeType)
	}
	if f.DataType != "" {
		where = append(where, "data_type IS NOT NULL")
	}

	query := "SELECT id, node_name, data_type, node_type, file_location FROM notifications WHERE " +
		strings.Join(where, " AND ") + " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewSinkError("sqlite", "query", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		var nodeName, dataType, nodeType, fileLoc sql.NullString
		if err := rows.Scan(&r.ID, &nodeName, &dataType, &nodeType, &fileLoc); err != nil {
			return nil, NewSinkError("sqlite", "scan", err)
		}
		r.NodeName = nodeName.String
		r.DataType = dataType.String
		r.NodeType = nodeType.String
		r.FileLocation = fileLoc.String

		if !f.Match(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, NewSinkError("sqlite", "scan", err)
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *SQLiteSink) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&n); err != nil {
		return 0, NewSinkError("sqlite", "count", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Sink = (*SQLiteSink)(nil)
