// Package extractor turns raw source text into canonical Endpoint records.
//
// Two strategies coexist behind one registry: a structured extractor that
// parses Go sources into an AST, and pattern extractors that match
// verb-call shapes in idioms without a structured parser available. Both
// normalize to the same Endpoint shape.
package extractor

import (
	"fmt"

	"specforge/internal/types"
)

// Func extracts endpoints from one file's source text. Implementations are
// pure: same input, same output, no shared state.
type Func func(path string, src []byte) ([]types.Endpoint, error)

// ParseError marks a single file the extractor could not process. Discovery
// logs it and moves on; it never aborts a scan.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

var registry = map[types.FrameworkKind]Func{}

// Register associates an extractor with a framework kind, replacing any prior
// registration. Called from init funcs in this package.
func Register(kind types.FrameworkKind, fn Func) {
	registry[kind] = fn
}

// Lookup returns the extractor registered for kind.
func Lookup(kind types.FrameworkKind) (Func, bool) {
	fn, ok := registry[kind]
	return fn, ok
}

// Extract classifies src and runs the matching extractor. Unrecognized files
// contribute zero endpoints and no error.
func Extract(path string, src []byte) ([]types.Endpoint, error) {
	kind := Classify(path, src)
	if kind == types.FrameworkNone {
		return nil, nil
	}
	fn, ok := Lookup(kind)
	if !ok {
		return nil, nil
	}
	eps, err := fn(path, src)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	for i := range eps {
		eps[i].Framework = kind
		eps[i].SourceFile = path
	}
	return eps, nil
}
