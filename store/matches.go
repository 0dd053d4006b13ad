package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var ErrMatchNotFound = errors.New("match not found")

// Match is one row of the match index.
type Match struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time // zero while the match is running
	Cells     int
	Bases     int
	AntCost   int
	Turns     int
	MyScore   int
	OppScore  int
	Recording string
}

// MatchIndex wraps the SQLite connection with thread-safe operations.
type MatchIndex struct {
	conn *sql.DB
	mu   sync.Mutex
}

// OpenMatchIndex opens (creating if needed) the index at path.
func OpenMatchIndex(path string) (*MatchIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	idx := &MatchIndex{conn: conn}
	if err := idx.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *MatchIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,   -- unix nanoseconds
		ended_at INTEGER NOT NULL DEFAULT 0,
		cells INTEGER NOT NULL,
		bases INTEGER NOT NULL,
		ant_cost INTEGER NOT NULL,
		turns INTEGER NOT NULL DEFAULT 0,
		my_score INTEGER NOT NULL DEFAULT 0,
		opp_score INTEGER NOT NULL DEFAULT 0,
		recording TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_matches_started_at ON matches(started_at);
	`

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StartMatch inserts a running match.
func (idx *MatchIndex) StartMatch(m Match) error {
	if m.ID == "" {
		return fmt.Errorf("match id is empty")
	}
	if m.StartedAt.IsZero() {
		m.StartedAt = time.Now()
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := idx.conn.Exec(
		"INSERT INTO matches (id, started_at, cells, bases, ant_cost) VALUES (?, ?, ?, ?, ?)",
		m.ID, m.StartedAt.UnixNano(), m.Cells, m.Bases, m.AntCost,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
	}
	return nil
}

// FinishMatch records the final turn count, scores and recording path.
func (idx *MatchIndex) FinishMatch(id string, turns, myScore, oppScore int, recording string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	res, err := idx.conn.Exec(
		"UPDATE matches SET ended_at = ?, turns = ?, my_score = ?, opp_score = ?, recording = ? WHERE id = ?",
		time.Now().UnixNano(), turns, myScore, oppScore, recording, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish match %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return nil
}

const matchColumns = "id, started_at, ended_at, cells, bases, ant_cost, turns, my_score, opp_score, recording"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(s rowScanner) (Match, error) {
	var m Match
	var started, ended int64
	if err := s.Scan(&m.ID, &started, &ended, &m.Cells, &m.Bases, &m.AntCost, &m.Turns, &m.MyScore, &m.OppScore, &m.Recording); err != nil {
		return Match{}, err
	}
	m.StartedAt = time.Unix(0, started)
	if ended != 0 {
		m.EndedAt = time.Unix(0, ended)
	}
	return m, nil
}

func (idx *MatchIndex) Get(id string) (Match, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	m, err := scanMatch(idx.conn.QueryRow("SELECT "+matchColumns+" FROM matches WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return m, err
}

// Recent returns up to limit matches, newest first.
func (idx *MatchIndex) Recent(limit int) ([]Match, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rows, err := idx.conn.Query("SELECT "+matchColumns+" FROM matches ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// LatestRecorded returns the newest match that has a recording on disk.
// Running, interrupted and empty matches are skipped.
func (idx *MatchIndex) LatestRecorded() (Match, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	m, err := scanMatch(idx.conn.QueryRow("SELECT " + matchColumns + " FROM matches WHERE recording != '' ORDER BY started_at DESC LIMIT 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, fmt.Errorf("%w: no recorded matches", ErrMatchNotFound)
	}
	return m, err
}

func (idx *MatchIndex) Close() error {
	return idx.conn.Close()
}
