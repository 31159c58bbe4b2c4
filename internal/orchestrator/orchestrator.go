// Package orchestrator drives the fixed stage sequence discovery → spec →
// test → mock, with best-effort failure isolation: a failed optional stage is
// recorded and the pipeline continues on that stage's zero output.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"specforge/internal/broadcast"
	"specforge/internal/logger"
	"specforge/internal/types"
	"specforge/internal/utils"
)

// StageKind names one pipeline phase.
type StageKind string

const (
	StageDiscovery StageKind = "discovery"
	StageSpec      StageKind = "spec"
	StageTest      StageKind = "test"
	StageMock      StageKind = "mock"
	StageAnalysis  StageKind = "analysis"
)

// ErrStageNotRegistered is fatal only for the mandatory discovery stage.
var ErrStageNotRegistered = errors.New("orchestrator: stage not registered")

// Stage contracts. Each stage consumes the prior stage's output; the
// orchestrator owns the sequencing.

type DiscoveryStage interface {
	Scan(ctx context.Context, path string) ([]types.Endpoint, error)
}

type SpecStage interface {
	Generate(endpoints []types.Endpoint) (types.SpecDoc, error)
}

type TestStage interface {
	CreateTests(spec types.SpecDoc) ([]types.Artifact, error)
}

type MockStage interface {
	CreateMockServer(spec types.SpecDoc) (types.MockBundle, error)
}

// AnalysisStage is the external AI collaborator: opaque and swappable. Its
// failure only degrades the run.
type AnalysisStage interface {
	Analyze(ctx context.Context, spec types.SpecDoc) ([]types.Finding, error)
}

// Status is a pure read of orchestrator state.
type Status struct {
	IsRunning        bool        `json:"is_running"`
	RegisteredStages []StageKind `json:"registered_stages"`
	EndpointCount    int         `json:"endpoint_count"`
	QueuedMessages   int         `json:"queued_messages"`
}

// Orchestrator owns the stage registry, the endpoint registry and the FIFO
// message queue for one run at a time. It is not safe for concurrent
// overlapping Orchestrate calls; concurrent runs need separate instances.
// Status, Send and Receive may be called from other goroutines while a run
// is in flight.
type Orchestrator struct {
	log    *logger.Logger
	broker *broadcast.Broker

	mu        sync.Mutex
	stages    map[StageKind]any
	registry  map[string]types.Endpoint // keyed by "METHOD /path"
	queue     []types.AgentMessage
	isRunning bool
}

// New creates an orchestrator publishing progress to broker. A nil broker
// disables broadcasting; a nil logger silences logging.
func New(log *logger.Logger, broker *broadcast.Broker) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if broker == nil {
		broker = broadcast.NewBroker()
	}
	return &Orchestrator{
		log:      log.WithComponent("orchestrator"),
		broker:   broker,
		stages:   map[StageKind]any{},
		registry: map[string]types.Endpoint{},
	}
}

// Register associates a stage implementation with a kind, overwriting any
// prior registration for that kind.
func (o *Orchestrator) Register(kind StageKind, impl any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages[kind] = impl
}

func (o *Orchestrator) stage(kind StageKind) any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stages[kind]
}

// Send appends an inter-stage notification to the FIFO queue. Timestamp is
// stamped at enqueue when unset.
func (o *Orchestrator) Send(msg types.AgentMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = append(o.queue, msg)
}

// Receive pops the oldest queued message.
func (o *Orchestrator) Receive() (types.AgentMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return types.AgentMessage{}, false
	}
	msg := o.queue[0]
	o.queue = o.queue[1:]
	return msg, true
}

// Status reports current state without mutating it. Safe to call while
// Orchestrate runs on another goroutine.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	kinds := make([]StageKind, 0, len(o.stages))
	for k := range o.stages {
		kinds = append(kinds, k)
	}
	return Status{
		IsRunning:        o.isRunning,
		RegisteredStages: kinds,
		EndpointCount:    len(o.registry),
		QueuedMessages:   len(o.queue),
	}
}

// Orchestrate runs the pipeline against sourcePath and returns a best-effort
// result bundle. It raises only when discovery is unregistered or the input
// path is invalid at the discovery level; every downstream failure is
// collected into the result instead.
func (o *Orchestrator) Orchestrate(ctx context.Context, sourcePath string) (*types.RunResult, error) {
	disc, ok := o.stage(StageDiscovery).(DiscoveryStage)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageNotRegistered, StageDiscovery)
	}

	o.mu.Lock()
	o.isRunning = true
	o.registry = map[string]types.Endpoint{}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.isRunning = false
		o.mu.Unlock()
	}()

	result := &types.RunResult{
		RunID:      utils.NewRunID(sourcePath),
		SourcePath: sourcePath,
		StartedAt:  time.Now(),
	}
	log := o.log.WithRun(result.RunID)
	o.publish(broadcast.Event{Type: broadcast.EventStart, RunID: result.RunID, Message: sourcePath})

	// Discovery. A scan failure degrades to an empty endpoint list; later
	// stages still run so the caller gets every artifact that can exist.
	stageStart := time.Now()
	endpoints, err := o.runDiscovery(ctx, disc, sourcePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("discovery: %v", err))
		o.publish(broadcast.Event{Type: broadcast.EventError, Stage: string(StageDiscovery), RunID: result.RunID, Message: err.Error()})
		endpoints = nil
	}
	o.mu.Lock()
	for _, ep := range endpoints {
		o.registry[ep.Key()] = ep
	}
	o.mu.Unlock()
	result.Endpoints = endpoints
	o.stageDone(log, result.RunID, StageDiscovery, stageStart, map[string]any{"endpoints": len(endpoints)})

	// Spec synthesis. On failure the effective spec is the empty document.
	result.Spec = types.SpecDoc{Paths: map[string]map[string]types.Operation{}}
	if stage, ok := o.stage(StageSpec).(SpecStage); ok {
		stageStart = time.Now()
		spec, err := runIsolated(func() (types.SpecDoc, error) { return stage.Generate(endpoints) })
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("spec: %v", err))
			o.publish(broadcast.Event{Type: broadcast.EventError, Stage: string(StageSpec), RunID: result.RunID, Message: err.Error()})
		} else {
			result.Spec = spec
		}
		o.stageDone(log, result.RunID, StageSpec, stageStart, map[string]any{"operations": result.Spec.OperationCount()})
	}

	// Test synthesis.
	if stage, ok := o.stage(StageTest).(TestStage); ok {
		stageStart = time.Now()
		tests, err := runIsolated(func() ([]types.Artifact, error) { return stage.CreateTests(result.Spec) })
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("test: %v", err))
			o.publish(broadcast.Event{Type: broadcast.EventError, Stage: string(StageTest), RunID: result.RunID, Message: err.Error()})
		} else {
			result.Tests = tests
		}
		o.stageDone(log, result.RunID, StageTest, stageStart, map[string]any{"artifacts": len(result.Tests)})
	}

	// Mock synthesis.
	if stage, ok := o.stage(StageMock).(MockStage); ok {
		stageStart = time.Now()
		bundle, err := runIsolated(func() (types.MockBundle, error) { return stage.CreateMockServer(result.Spec) })
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("mock: %v", err))
			o.publish(broadcast.Event{Type: broadcast.EventError, Stage: string(StageMock), RunID: result.RunID, Message: err.Error()})
		} else {
			result.Mock = &bundle
		}
		o.stageDone(log, result.RunID, StageMock, stageStart, map[string]any{"samples": sampleCount(result.Mock)})
	}

	// External analysis pass-through; opaque and never fatal.
	if stage, ok := o.stage(StageAnalysis).(AnalysisStage); ok {
		stageStart = time.Now()
		findings, err := runIsolated(func() ([]types.Finding, error) { return stage.Analyze(ctx, result.Spec) })
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("analysis: %v", err))
			o.publish(broadcast.Event{Type: broadcast.EventError, Stage: string(StageAnalysis), RunID: result.RunID, Message: err.Error()})
		} else {
			result.Findings = findings
		}
		o.stageDone(log, result.RunID, StageAnalysis, stageStart, map[string]any{"findings": len(result.Findings)})
	}

	o.drainQueue(result.RunID)
	result.CompletedAt = time.Now()
	o.publish(broadcast.Event{
		Type: broadcast.EventComplete, RunID: result.RunID,
		Payload: map[string]any{"endpoints": len(result.Endpoints), "errors": len(result.Errors)},
	})
	return result, nil
}

func (o *Orchestrator) runDiscovery(ctx context.Context, stage DiscoveryStage, path string) ([]types.Endpoint, error) {
	return runIsolated(func() ([]types.Endpoint, error) { return stage.Scan(ctx, path) })
}

// runIsolated converts a stage panic into a stage error so one broken stage
// implementation cannot take down the pipeline.
func runIsolated[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return fn()
}

func (o *Orchestrator) stageDone(log *logger.Logger, runID string, kind StageKind, started time.Time, payload map[string]any) {
	log.StageEvent(string(kind), time.Since(started), nil)
	o.publish(broadcast.Event{
		Type:    broadcast.EventStageComplete,
		Stage:   string(kind),
		RunID:   runID,
		Payload: payload,
	})
}

// drainQueue forwards any queued inter-stage messages to subscribers as
// progress events.
func (o *Orchestrator) drainQueue(runID string) {
	for {
		msg, ok := o.Receive()
		if !ok {
			return
		}
		o.publish(broadcast.Event{
			Type:    broadcast.EventProgress,
			RunID:   runID,
			Message: msg.Action,
			Payload: msg,
		})
	}
}

func (o *Orchestrator) publish(ev broadcast.Event) {
	o.broker.Publish(ev)
}

func sampleCount(b *types.MockBundle) int {
	if b == nil {
		return 0
	}
	return len(b.SampleEndpoints)
}
