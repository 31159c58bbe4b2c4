// Package scan walks a source tree, skipping dependency and VCS directories.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultIgnoreDirs are subtree names that never contain first-party routes:
// package-manager caches, build output and VCS metadata.
var DefaultIgnoreDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "vendor", "bower_components",
	"__pycache__", ".venv", "venv", "site-packages",
	"target", "build", "dist", ".next", ".cache",
}

// FileVisit carries per-entry metadata to visit callbacks.
type FileVisit struct {
	// Root-relative path using forward slashes (e.g. "src/app.py").
	Path string
	// Absolute filesystem path.
	AbsPath string
	// True when the entry is a directory.
	IsDir bool
	// Lowercased extension including the dot; empty for dirs or no-ext files.
	Ext string
	// File size in bytes; 0 for dirs or when stat fails.
	Size int64
}

// VisitFunc is invoked for every visited entry.
type VisitFunc func(f FileVisit)

// Options controls a walk.
type Options struct {
	// IgnoreDirs overrides DefaultIgnoreDirs when non-nil.
	IgnoreDirs []string
	// MaxDepth limits recursion; 0 means unlimited. Depth 1 is the root's
	// immediate children.
	MaxDepth int
}

func (o Options) ignoreSet() map[string]struct{} {
	dirs := o.IgnoreDirs
	if dirs == nil {
		dirs = DefaultIgnoreDirs
	}
	set := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		set[d] = struct{}{}
	}
	return set
}

// Walk visits every entry under root, skipping ignored subtrees. Walk errors
// on individual entries are ignored so one unreadable directory cannot abort
// the whole traversal.
func Walk(root string, opts Options, cb VisitFunc) error {
	ignore := opts.ignoreSet()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := ignore[d.Name()]; skip && rel != "." {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 && rel != "." && strings.Count(rel, "/")+1 >= opts.MaxDepth {
				return filepath.SkipDir
			}
		}
		if rel == "." {
			return nil
		}

		size := int64(0)
		if !d.IsDir() {
			if fi, e := os.Stat(path); e == nil {
				size = fi.Size()
			}
		}
		if cb != nil {
			cb(FileVisit{
				Path:    rel,
				AbsPath: path,
				IsDir:   d.IsDir(),
				Ext:     strings.ToLower(filepath.Ext(rel)),
				Size:    size,
			})
		}
		return nil
	})
}

// Files returns every file under root in sorted path order. The explicit sort
// makes downstream output deterministic regardless of filesystem order.
func Files(root string, opts Options) ([]FileVisit, error) {
	var out []FileVisit
	err := Walk(root, opts, func(fv FileVisit) {
		if fv.IsDir {
			return
		}
		out = append(out, fv)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
