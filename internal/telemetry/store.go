package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists metric aggregates to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the metrics database at
// path and ensures the schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metrics directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open metrics database: %w", err)
	}
	// A single writer keeps SQLite happy under concurrent flushes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Query latency histogram (aggregated daily)
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);

	-- Zero-result queries (bounded FIFO, max 100)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Index build history
	CREATE TABLE IF NOT EXISTS build_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_count INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		warning_count INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create metrics schema: %w", err)
	}
	return nil
}

// SaveLatencyCounts upserts daily latency histogram counts.
func (s *SQLiteStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for bucket, count := range counts {
		if _, err := stmt.Exec(date, string(bucket), count); err != nil {
			return fmt.Errorf("insert latency count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddZeroResultQuery appends a query to the zero-result buffer, keeping
// at most 100 entries.
func (s *SQLiteStore) AddZeroResultQuery(query string, timestamp time.Time) error {
	if _, err := s.db.Exec(`
		INSERT INTO zero_result_queries (query, timestamp)
		VALUES (?, ?)
	`, query, timestamp); err != nil {
		return fmt.Errorf("insert zero-result query: %w", err)
	}

	if _, err := s.db.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries
			ORDER BY id DESC
			LIMIT 100
		)
	`); err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	return nil
}

// SaveBuildEvent appends a build record.
func (s *SQLiteStore) SaveBuildEvent(event BuildEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO build_events (source_count, chunk_count, warning_count, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, event.SourceCount, event.ChunkCount, event.WarningCount, event.Duration.Milliseconds(), event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert build event: %w", err)
	}
	return nil
}

// GetLatencyCounts retrieves the latency distribution for a date range.
func (s *SQLiteStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`
		SELECT bucket, SUM(count) as total
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[LatencyBucket(bucket)] = count
	}
	return counts, rows.Err()
}

// GetZeroResultQueries retrieves recent zero-result queries, newest first.
func (s *SQLiteStore) GetZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT query
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// LoadSnapshot reconstructs a snapshot from everything persisted so
// far. Zero-result counts reflect only the bounded buffer.
func (s *SQLiteStore) LoadSnapshot() (Snapshot, error) {
	counts, err := s.GetLatencyCounts("0000-01-01", "9999-12-31")
	if err != nil {
		return Snapshot{}, err
	}
	var total int64
	for _, c := range counts {
		total += c
	}

	zero, err := s.GetZeroResultQueries(zeroResultCapacity)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		QueryCount:          total,
		ZeroResultCount:     int64(len(zero)),
		ZeroResultQueries:   zero,
		LatencyDistribution: counts,
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM build_events`).Scan(&snap.BuildCount); err != nil {
		return Snapshot{}, fmt.Errorf("count build events: %w", err)
	}
	if snap.BuildCount > 0 {
		var durationMS int64
		err := s.db.QueryRow(`
			SELECT chunk_count, duration_ms
			FROM build_events
			ORDER BY id DESC
			LIMIT 1
		`).Scan(&snap.LastBuildChunks, &durationMS)
		if err != nil {
			return Snapshot{}, fmt.Errorf("scan last build: %w", err)
		}
		snap.LastBuildDuration = time.Duration(durationMS) * time.Millisecond
	}
	return snap, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Verify interface implementation.
var _ Store = (*SQLiteStore)(nil)
