package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tickagent/internal/tick"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one processed tick as kept for later inspection. The JSON files
// stay the source of truth; this table only helps debugging.
type Entry struct {
	ID               string       `json:"id"`
	TradeID          string       `json:"trade_id"`
	Timestamp        int64        `json:"ts"`
	Source           string       `json:"source"`
	Trades           []tick.Trade `json:"trades"`
	Rationale        string       `json:"rationale"`
	PnL              float64      `json:"pnl"`
	Evaluated        int          `json:"evaluated"`
	MothershipStatus int          `json:"mothership_status"`
	Error            string       `json:"error,omitempty"`
}

type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tick_audit (
			id TEXT PRIMARY KEY,
			trade_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			source TEXT,
			trades_json TEXT,
			rationale TEXT,
			pnl REAL NOT NULL DEFAULT 0,
			evaluated INTEGER NOT NULL DEFAULT 0,
			mothership_status INTEGER,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tick_audit_ts ON tick_audit(ts DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("audit schema: %w", err)
		}
	}
	return nil
}

func (s *Store) handle() (*sql.DB, error) {
	if s == nil {
		return nil, fmt.Errorf("audit log not initialised")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("audit log closed")
	}
	return s.db, nil
}

// Record inserts e, filling ID and Timestamp when empty, and returns the id.
func (s *Store) Record(ctx context.Context, e Entry) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	trades, err := json.Marshal(e.Trades)
	if err != nil {
		return "", err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO tick_audit
			(id, trade_id, ts, source, trades_json, rationale, pnl, evaluated, mothership_status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TradeID, e.Timestamp, e.Source, string(trades), e.Rationale,
		e.PnL, e.Evaluated, e.MothershipStatus, e.Error,
	)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, trade_id, ts, source, trades_json, rationale, pnl, evaluated, mothership_status, error
		FROM tick_audit ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Entry
	for rows.Next() {
		var (
			e         Entry
			source    sql.NullString
			tradesRaw sql.NullString
			rationale sql.NullString
			status    sql.NullInt64
			errText   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TradeID, &e.Timestamp, &source, &tradesRaw, &rationale,
			&e.PnL, &e.Evaluated, &status, &errText); err != nil {
			return nil, err
		}
		e.Source = source.String
		e.Rationale = rationale.String
		e.MothershipStatus = int(status.Int64)
		e.Error = errText.String
		if tradesRaw.String != "" {
			_ = json.Unmarshal([]byte(tradesRaw.String), &e.Trades)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
