// Package analysis integrates the external AI collaborator that reviews a
// generated spec for security and performance concerns. The core treats it as
// an opaque, swappable service; everything here can be replaced by any
// implementation of Analyzer.
package analysis

import (
	"context"

	"specforge/internal/types"
)

// Analyzer reviews a canonical spec and returns structured findings.
type Analyzer interface {
	Analyze(ctx context.Context, spec types.SpecDoc) ([]types.Finding, error)
}

// Noop satisfies Analyzer without doing anything. Used when no AI backend is
// configured.
type Noop struct{}

func (Noop) Analyze(context.Context, types.SpecDoc) ([]types.Finding, error) {
	return nil, nil
}
