// Package discovery walks a source path and produces canonical Endpoint
// records via the extractor registry.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"specforge/internal/extractor"
	"specforge/internal/logger"
	"specforge/internal/safeio"
	"specforge/internal/scan"
	"specforge/internal/types"
)

// ErrPathNotFound is returned when the scan target does not exist. It is the
// only error Scan raises; everything per-file is degraded to zero endpoints.
var ErrPathNotFound = errors.New("discovery: path not found")

// Agent owns the per-run discovered-endpoint list. Each Scan call fully
// replaces it. An Agent is not safe for concurrent Scan calls; use one agent
// per run.
type Agent struct {
	log  *logger.Logger
	opts scan.Options

	discovered []types.Endpoint
	filesSeen  int
	parseFails int
}

// NewAgent creates an agent with default ignore rules.
func NewAgent(log *logger.Logger) *Agent {
	if log == nil {
		log = logger.Nop()
	}
	return &Agent{log: log.WithComponent("discovery")}
}

// SetScanOptions overrides the walk options (ignore dirs, depth).
func (a *Agent) SetScanOptions(opts scan.Options) { a.opts = opts }

// Endpoints returns the result of the last completed scan.
func (a *Agent) Endpoints() []types.Endpoint { return a.discovered }

// Stats reports file and failure counts from the last scan.
func (a *Agent) Stats() (filesSeen, parseFailures int) {
	return a.filesSeen, a.parseFails
}

// Scan discovers every endpoint reachable from path. A missing path is fatal;
// a file that fails to parse is logged and contributes zero endpoints.
func (a *Agent) Scan(ctx context.Context, path string) ([]types.Endpoint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	// Reset-then-append: the previous run's list never leaks into this one.
	a.discovered = nil
	a.filesSeen = 0
	a.parseFails = 0

	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			// The path exists; this is a read failure, not a missing path.
			return nil, fmt.Errorf("discovery: read %s: %w", path, err)
		}
		a.extractSource(filepath.Base(path), src)
		types.SortEndpoints(a.discovered)
		return a.discovered, nil
	}

	// All reads below go through a root-jailed filesystem: a symlink or
	// crafted relative path inside the tree cannot pull in outside files.
	fsys, err := safeio.New(path)
	if err != nil {
		return nil, err
	}
	files, err := scan.Files(fsys.Root(), a.opts)
	if err != nil {
		return nil, err
	}
	for _, fv := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.extractFile(fsys, fv.Path)
	}
	types.SortEndpoints(a.discovered)
	a.log.Infof("scan complete: %d endpoints from %d files (%d parse failures)",
		len(a.discovered), a.filesSeen, a.parseFails)
	return a.discovered, nil
}

func (a *Agent) extractFile(fsys *safeio.SafeFS, relPath string) {
	src, err := fsys.ReadFile(relPath)
	if err != nil {
		a.filesSeen++
		a.parseFails++
		a.log.ParseFailure(relPath, err)
		return
	}
	a.extractSource(relPath, src)
}

func (a *Agent) extractSource(relPath string, src []byte) {
	a.filesSeen++
	eps, err := extractor.Extract(relPath, src)
	if err != nil {
		a.parseFails++
		a.log.ParseFailure(relPath, err)
		return
	}
	a.discovered = append(a.discovered, eps...)
}
