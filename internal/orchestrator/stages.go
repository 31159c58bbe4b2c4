package orchestrator

import (
	"context"

	"specforge/internal/analysis"
	"specforge/internal/broadcast"
	"specforge/internal/discovery"
	"specforge/internal/logger"
	"specforge/internal/mockgen"
	"specforge/internal/specgen"
	"specforge/internal/testgen"
	"specforge/internal/types"
)

// Stage adapters binding the concrete generators to the registry contracts.

type specStage struct{}

func (specStage) Generate(endpoints []types.Endpoint) (types.SpecDoc, error) {
	return specgen.Generate(endpoints), nil
}

type testStage struct{ opts testgen.Options }

func (s testStage) CreateTests(spec types.SpecDoc) ([]types.Artifact, error) {
	return testgen.CreateTests(spec, s.opts)
}

type mockStage struct{ cfg mockgen.Config }

func (s mockStage) CreateMockServer(spec types.SpecDoc) (types.MockBundle, error) {
	return mockgen.CreateMockServer(spec, s.cfg)
}

type analysisStage struct{ az analysis.Analyzer }

func (s analysisStage) Analyze(ctx context.Context, spec types.SpecDoc) ([]types.Finding, error) {
	return s.az.Analyze(ctx, spec)
}

// Pipeline bundles the options the default stage set needs.
type Pipeline struct {
	TestOptions testgen.Options
	MockConfig  mockgen.Config
	Analyzer    analysis.Analyzer // nil disables the analysis pass
}

// NewDefault assembles an orchestrator with the full built-in stage set.
func NewDefault(log *logger.Logger, broker *broadcast.Broker, p Pipeline) *Orchestrator {
	o := New(log, broker)
	o.Register(StageDiscovery, discovery.NewAgent(log))
	o.Register(StageSpec, specStage{})
	o.Register(StageTest, testStage{opts: p.TestOptions})
	o.Register(StageMock, mockStage{cfg: p.MockConfig})
	if p.Analyzer != nil {
		o.Register(StageAnalysis, analysisStage{az: p.Analyzer})
	}
	return o
}
