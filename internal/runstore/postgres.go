package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"specforge/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	endpoints   INT  NOT NULL,
	errors      INT  NOT NULL,
	started_at  TEXT NOT NULL,
	payload     JSONB NOT NULL
)`

// PostgresStore keeps runs in a runs table, payload as JSONB.
type PostgresStore struct {
	db    *sql.DB
	cache *lru.Cache[string, *types.RunResult]
}

// NewPostgres connects, pings and ensures the schema.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runstore: ensure schema: %w", err)
	}
	cache, err := lru.New[string, *types.RunResult](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) Save(result *types.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("runstore: marshal run: %w", err)
	}
	sum := summarize(result)
	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, source_path, endpoints, errors, started_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET payload = EXCLUDED.payload`,
		sum.RunID, sum.SourcePath, sum.Endpoints, sum.Errors, sum.StartedAt, payload)
	if err != nil {
		return err
	}
	s.cache.Add(result.RunID, result)
	return nil
}

func (s *PostgresStore) Load(runID string) (*types.RunResult, error) {
	if r, ok := s.cache.Get(runID); ok {
		return r, nil
	}
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM runs WHERE run_id = $1`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var result types.RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	s.cache.Add(runID, &result)
	return &result, nil
}

func (s *PostgresStore) List() ([]Summary, error) {
	rows, err := s.db.Query(`SELECT run_id, source_path, endpoints, errors, started_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.RunID, &sum.SourcePath, &sum.Endpoints, &sum.Errors, &sum.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
