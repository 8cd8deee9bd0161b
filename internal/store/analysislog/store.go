package analysislog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"verge/internal/session"
	"verge/internal/store"

	_ "modernc.org/sqlite"
)

const DefaultListLimit = 50

// Store keeps analysis records in their own SQLite file so the loops can
// append without contending with session writes.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	ownsDB bool
}

var _ store.LogRepository = (*Store)(nil)

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("analysis log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, ownsDB: true}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT,
			session_id TEXT,
			symbol TEXT NOT NULL,
			log_type TEXT NOT NULL,
			message TEXT NOT NULL,
			level TEXT NOT NULL,
			ts INTEGER NOT NULL,
			payload TEXT
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_logs_session_ts ON analysis_logs(session_id, ts DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_logs_ts ON analysis_logs(ts DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_logs_owner_ts ON analysis_logs(owner_id, ts DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || !s.ownsDB {
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

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("analysis log store closed")
	}
	return s.db, nil
}

func (s *Store) Append(ctx context.Context, rec session.AnalysisLog) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Level == "" {
		rec.Level = session.LevelInfo
	}
	if rec.Type == "" {
		rec.Type = session.LogStandard
	}
	var payload any
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO analysis_logs (owner_id, session_id, symbol, log_type, message, level, ts, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerID, rec.SessionID, rec.Symbol, string(rec.Type), rec.Message, string(rec.Level),
		rec.Timestamp.UnixMilli(), payload)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]session.AnalysisLog, error) {
	var where []string
	var args []any
	if sessionID != "" {
		where = append(where, `session_id = ?`)
		args = append(args, sessionID)
	}
	return s.list(ctx, where, args, limit)
}

// ListOwned returns ownerID's records. Without a sessionID it also includes
// unowned market-wide records such as scanner signals.
func (s *Store) ListOwned(ctx context.Context, ownerID, sessionID string, limit int) ([]session.AnalysisLog, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("analysis logs: owner id is required")
	}
	var where []string
	var args []any
	if sessionID != "" {
		where = append(where, `session_id = ?`, `owner_id = ?`)
		args = append(args, sessionID, ownerID)
	} else {
		where = append(where, `(owner_id = ? OR owner_id IS NULL OR owner_id = '')`)
		args = append(args, ownerID)
	}
	return s.list(ctx, where, args, limit)
}

func (s *Store) list(ctx context.Context, where []string, args []any, limit int) ([]session.AnalysisLog, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT id, owner_id, session_id, symbol, log_type, message, level, ts, payload FROM analysis_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []session.AnalysisLog
	for rows.Next() {
		var (
			rec                 session.AnalysisLog
			owner, sid, payload sql.NullString
			logType, level      string
			ts                  int64
		)
		if err := rows.Scan(&rec.ID, &owner, &sid, &rec.Symbol, &logType, &rec.Message, &level, &ts, &payload); err != nil {
			return nil, err
		}
		rec.OwnerID = owner.String
		rec.SessionID = sid.String
		rec.Type = session.LogType(logType)
		rec.Level = session.Level(level)
		rec.Timestamp = time.UnixMilli(ts).UTC()
		if payload.Valid && payload.String != "" {
			rec.Payload = []byte(payload.String)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) PurgeSession(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, nil
	}
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM analysis_logs WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
