package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"specforge/internal/broadcast"
	"specforge/internal/logger"
	"specforge/internal/types"
)

type fakeDiscovery struct {
	endpoints []types.Endpoint
	err       error
}

func (f fakeDiscovery) Scan(context.Context, string) ([]types.Endpoint, error) {
	return f.endpoints, f.err
}

type failingSpec struct{}

func (failingSpec) Generate([]types.Endpoint) (types.SpecDoc, error) {
	return types.SpecDoc{}, errors.New("boom")
}

type panickingTests struct{}

func (panickingTests) CreateTests(types.SpecDoc) ([]types.Artifact, error) {
	panic("template exploded")
}

func sampleEndpoints() []types.Endpoint {
	return []types.Endpoint{
		{Method: "GET", Path: "/users", HandlerName: "list"},
		{Method: "POST", Path: "/users", HandlerName: "create"},
	}
}

func TestOrchestrateRequiresDiscovery(t *testing.T) {
	o := New(logger.Nop(), nil)
	_, err := o.Orchestrate(context.Background(), "whatever")
	require.ErrorIs(t, err, ErrStageNotRegistered)
}

func TestOrchestrateDiscoveryOnly(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Register(StageDiscovery, fakeDiscovery{endpoints: sampleEndpoints()})

	result, err := o.Orchestrate(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, result.Endpoints, 2)
	require.NotEmpty(t, result.RunID)
	require.Empty(t, result.Errors)
	// Unregistered optional stages leave zero values, not nils that crash.
	require.NotNil(t, result.Spec.Paths)
	require.Nil(t, result.Mock)
}

func TestOrchestrateStageFailureIsolated(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Register(StageDiscovery, fakeDiscovery{endpoints: sampleEndpoints()})
	o.Register(StageSpec, failingSpec{})

	result, err := o.Orchestrate(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "spec")
	// The failed stage degrades to the empty document.
	require.Equal(t, 0, result.Spec.OperationCount())
}

func TestOrchestratePanicRecovered(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Register(StageDiscovery, fakeDiscovery{endpoints: sampleEndpoints()})
	o.Register(StageTest, panickingTests{})

	result, err := o.Orchestrate(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "stage panicked")
}

func TestOrchestrateDiscoveryFailureContinues(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Register(StageDiscovery, fakeDiscovery{err: errors.New("no such path")})
	o.Register(StageSpec, specStage{})

	result, err := o.Orchestrate(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, result.Endpoints)
	require.Len(t, result.Errors, 1)
	// Spec still ran against the empty endpoint list.
	require.Equal(t, 0, result.Spec.OperationCount())
	require.Equal(t, "3.0.3", result.Spec.OpenAPI)
}

func TestOrchestrateEvents(t *testing.T) {
	broker := broadcast.NewBroker()
	events, cancel := broker.Subscribe(64)
	defer cancel()

	o := New(logger.Nop(), broker)
	o.Register(StageDiscovery, fakeDiscovery{endpoints: sampleEndpoints()})
	o.Register(StageSpec, specStage{})

	_, err := o.Orchestrate(context.Background(), "src")
	require.NoError(t, err)

	var kinds []broadcast.EventType
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Type)
	}
	require.Equal(t, broadcast.EventStart, kinds[0])
	require.Equal(t, broadcast.EventComplete, kinds[len(kinds)-1])
	require.Contains(t, kinds, broadcast.EventStageComplete)
}

func TestSendReceiveFIFO(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Send(types.AgentMessage{Sender: "a", Action: "first"})
	o.Send(types.AgentMessage{Sender: "b", Action: "second"})

	msg, ok := o.Receive()
	require.True(t, ok)
	require.Equal(t, "first", msg.Action)
	require.False(t, msg.Timestamp.IsZero())

	msg, ok = o.Receive()
	require.True(t, ok)
	require.Equal(t, "second", msg.Action)

	_, ok = o.Receive()
	require.False(t, ok)
}

func TestStatusReflectsRegistry(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Register(StageDiscovery, fakeDiscovery{endpoints: sampleEndpoints()})

	st := o.Status()
	require.False(t, st.IsRunning)
	require.Equal(t, []StageKind{StageDiscovery}, st.RegisteredStages)
	require.Zero(t, st.EndpointCount)

	_, err := o.Orchestrate(context.Background(), "src")
	require.NoError(t, err)

	st = o.Status()
	require.False(t, st.IsRunning)
	require.Equal(t, 2, st.EndpointCount)
}

type slowDiscovery struct {
	endpoints []types.Endpoint
}

func (s slowDiscovery) Scan(context.Context, string) ([]types.Endpoint, error) {
	time.Sleep(time.Millisecond)
	return s.endpoints, nil
}

// Status, Send and Receive run on the serving goroutine while Orchestrate
// runs in the background; run under -race.
func TestStatusConcurrentWithRun(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Register(StageDiscovery, slowDiscovery{endpoints: sampleEndpoints()})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				o.Status()
				o.Send(types.AgentMessage{Sender: "watcher", Action: "ping"})
				o.Receive()
			}
		}
	}()

	for i := 0; i < 25; i++ {
		_, err := o.Orchestrate(context.Background(), "src")
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	st := o.Status()
	require.False(t, st.IsRunning)
	require.Equal(t, 2, st.EndpointCount)
}

func TestRegistryResetBetweenRuns(t *testing.T) {
	o := New(logger.Nop(), nil)
	o.Register(StageDiscovery, fakeDiscovery{endpoints: sampleEndpoints()})
	_, err := o.Orchestrate(context.Background(), "src")
	require.NoError(t, err)
	require.Equal(t, 2, o.Status().EndpointCount)

	o.Register(StageDiscovery, fakeDiscovery{})
	_, err = o.Orchestrate(context.Background(), "src")
	require.NoError(t, err)
	require.Zero(t, o.Status().EndpointCount)
}

// Full default pipeline against a real fixture tree.
func TestNewDefaultEndToEnd(t *testing.T) {
	root := t.TempDir()
	app := `from flask import Flask
app = Flask(__name__)

@app.route('/items', methods=['GET', 'POST'])
def items():
    pass

@app.route('/items/<int:item_id>')
def get_item(item_id):
    pass
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte(app), 0o644))

	o := NewDefault(logger.Nop(), nil, Pipeline{})
	result, err := o.Orchestrate(context.Background(), root)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Endpoints, 3)
	require.Equal(t, 3, result.Spec.OperationCount())
	require.NotEmpty(t, result.Tests)
	require.NotNil(t, result.Mock)
	require.NotEmpty(t, result.Mock.SampleEndpoints)
	require.False(t, result.CompletedAt.Before(result.StartedAt))
}
