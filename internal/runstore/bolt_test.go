package runstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"specforge/internal/types"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBolt(filepath.Join(t.TempDir(), "data", "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string) *types.RunResult {
	return &types.RunResult{
		RunID:      id,
		SourcePath: "/src/app",
		Endpoints: []types.Endpoint{
			{Method: "GET", Path: "/users"},
		},
		Spec:      types.SpecDoc{OpenAPI: "3.0.3", Paths: map[string]map[string]types.Operation{}},
		Errors:    []string{"mock: boom"},
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	in := sampleRun("run-1")
	if err := s.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.Load("run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.RunID != in.RunID || out.SourcePath != in.SourcePath {
		t.Fatalf("identity fields lost: %+v", out)
	}
	if len(out.Endpoints) != 1 || out.Endpoints[0].Path != "/users" {
		t.Fatalf("endpoints lost: %+v", out.Endpoints)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load("never-saved"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSummaries(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"run-a", "run-b"} {
		if err := s.Save(sampleRun(id)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	sums, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sums))
	}
	for _, sum := range sums {
		if sum.Endpoints != 1 || sum.Errors != 1 {
			t.Fatalf("summary counts wrong: %+v", sum)
		}
		if sum.StartedAt == "" {
			t.Fatalf("timestamp missing: %+v", sum)
		}
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(sampleRun("run-1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	updated := sampleRun("run-1")
	updated.SourcePath = "/src/other"
	if err := s.Save(updated); err != nil {
		t.Fatalf("resave: %v", err)
	}
	out, err := s.Load("run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.SourcePath != "/src/other" {
		t.Fatalf("overwrite lost: %+v", out)
	}
	sums, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("overwrite must not duplicate summaries: %d", len(sums))
	}
}

func TestLoadSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")

	s, err := NewBolt(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save(sampleRun("run-1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	out, err := s2.Load("run-1")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if out.RunID != "run-1" {
		t.Fatalf("unexpected run: %+v", out)
	}
}
