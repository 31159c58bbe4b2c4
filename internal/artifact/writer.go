// Package artifact persists a run's outputs under a per-run directory and,
// when configured, mirrors them to an S3-compatible store.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"specforge/internal/types"
)

// Writer lays a run's artifacts out as:
//
//	<root>/<runID>/spec.json
//	<root>/<runID>/tests/<framework>/<filename>
//	<root>/<runID>/mock/<filename>
//	<root>/<runID>/findings.json
//	<root>/<runID>/result.json
type Writer struct {
	root string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "out"
	}
	return &Writer{root: dir}
}

// WriteRun persists everything the run produced. It returns the run
// directory and the list of files written, relative to it.
func (w *Writer) WriteRun(result *types.RunResult) (string, []string, error) {
	runDir := filepath.Join(w.root, result.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", nil, err
	}
	var written []string
	put := func(rel string, content []byte) error {
		abs := filepath.Join(runDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(abs, content, 0o644); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	}

	specJSON, err := json.MarshalIndent(result.Spec, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal spec: %w", err)
	}
	if err := put("spec.json", specJSON); err != nil {
		return "", nil, err
	}

	for _, a := range result.Tests {
		rel := filepath.ToSlash(filepath.Join("tests", a.Framework, a.Filename))
		if err := put(rel, []byte(a.Content)); err != nil {
			return "", nil, err
		}
	}

	if result.Mock != nil {
		for _, a := range result.Mock.Artifacts() {
			if err := put("mock/"+a.Filename, []byte(a.Content)); err != nil {
				return "", nil, err
			}
		}
	}

	if len(result.Findings) > 0 {
		b, err := json.MarshalIndent(result.Findings, "", "  ")
		if err != nil {
			return "", nil, err
		}
		if err := put("findings.json", b); err != nil {
			return "", nil, err
		}
	}

	summary, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", nil, err
	}
	if err := put("result.json", summary); err != nil {
		return "", nil, err
	}
	return runDir, written, nil
}
