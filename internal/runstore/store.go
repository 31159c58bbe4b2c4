// Package runstore persists completed run results for later retrieval. The
// default backend is a local bbolt file; setting SPECFORGE_PG_DSN selects a
// Postgres backend instead, with a silent fallback to the local file when the
// database is unreachable.
package runstore

import (
	"errors"
	"os"
	"strings"

	"specforge/internal/types"
)

// ErrNotFound is returned when no run exists for an id.
var ErrNotFound = errors.New("runstore: run not found")

// Summary is the listing row kept cheap for history views.
type Summary struct {
	RunID      string `json:"run_id"`
	SourcePath string `json:"source_path"`
	Endpoints  int    `json:"endpoints"`
	Errors     int    `json:"errors"`
	StartedAt  string `json:"started_at"`
}

// Store is the run-history contract both backends satisfy.
type Store interface {
	Save(result *types.RunResult) error
	Load(runID string) (*types.RunResult, error)
	List() ([]Summary, error)
	Close() error
}

// NewFromEnv picks the backend: Postgres when SPECFORGE_PG_DSN is set and
// reachable, the bbolt file at path otherwise.
func NewFromEnv(path string) (Store, error) {
	dsn := strings.TrimSpace(os.Getenv("SPECFORGE_PG_DSN"))
	if dsn != "" {
		if s, err := NewPostgres(dsn); err == nil {
			return s, nil
		}
	}
	return NewBolt(path)
}

func summarize(r *types.RunResult) Summary {
	return Summary{
		RunID:      r.RunID,
		SourcePath: r.SourcePath,
		Endpoints:  len(r.Endpoints),
		Errors:     len(r.Errors),
		StartedAt:  r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
