package assistant

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/config"
	"github.com/videocatalog/videocatalog/internal/scheduler"
	"github.com/videocatalog/videocatalog/internal/storage"
)

func newTestGatewayDeps(t *testing.T) (*catalog.Service, *scheduler.Scheduler) {
	t.Helper()
	catalogDB, err := storage.OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalogDB.Close() })
	shards := storage.NewShardPool(catalogDB, 4)

	auxDB, err := storage.OpenAuxiliary(filepath.Join(t.TempDir(), "orchestrator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = auxDB.Close() })
	require.NoError(t, scheduler.EnsureSchema(context.Background(), auxDB))
	sched := scheduler.New(auxDB, time.Millisecond, time.Second)

	return catalog.New(catalogDB, shards, 50, 200), sched
}

// scriptedRunner replays a fixed sequence of turns, one per Next call.
type scriptedRunner struct {
	turns []ModelTurn
	calls int
}

func (r *scriptedRunner) Name() string { return "scripted-test-model" }

func (r *scriptedRunner) Next(ctx context.Context, systemPrompt string, history []Message, question, ragContext string) (ModelTurn, error) {
	if r.calls >= len(r.turns) {
		return ModelTurn{Answer: "no more scripted turns", Done: true}, nil
	}
	turn := r.turns[r.calls]
	r.calls++
	return turn, nil
}

func readyGateway(t *testing.T, runner ModelRunner, toolBudget int) *Gateway {
	t.Helper()
	svc, sched := newTestGatewayDeps(t)
	dispatcher := &Dispatcher{Catalog: svc, ExportsDir: t.TempDir()}
	cfg := config.AssistantSettings{Enabled: true, RequireGPU: false, ToolBudget: toolBudget, OllamaHost: "http://127.0.0.1:11434", Model: "llama3.1"}
	return NewGateway(context.Background(), cfg, NewGPUProbe(time.Second), sched, dispatcher, func() ModelRunner { return runner })
}

func TestGateway_StatusReportsGateOpenWhenNoGPURequired(t *testing.T) {
	g := readyGateway(t, &scriptedRunner{}, 10)
	status := g.Status()
	assert.True(t, status.Enabled)
	assert.True(t, status.GPUReady)
	assert.Empty(t, status.Message)
}

func TestGateway_DisabledBySettingsFailsClosed(t *testing.T) {
	svc, sched := newTestGatewayDeps(t)
	dispatcher := &Dispatcher{Catalog: svc, ExportsDir: t.TempDir()}
	cfg := config.AssistantSettings{Enabled: false, RequireGPU: false, ToolBudget: 5}
	g := NewGateway(context.Background(), cfg, NewGPUProbe(time.Second), sched, dispatcher, func() ModelRunner { return &scriptedRunner{} })

	_, err := g.AskContext(context.Background(), "sess-1", "", "", "what movies are here?", nil, false)
	require.Error(t, err)
	assert.Equal(t, catalogerr.KindConflict, catalogerr.KindOf(err))
}

func TestGateway_DisabledByGPUGateFailsClosed(t *testing.T) {
	svc, sched := newTestGatewayDeps(t)
	dispatcher := &Dispatcher{Catalog: svc, ExportsDir: t.TempDir()}
	cfg := config.AssistantSettings{Enabled: true, RequireGPU: true, ToolBudget: 5}
	probe := NewGPUProbe(50 * time.Millisecond)
	g := NewGateway(context.Background(), cfg, probe, sched, dispatcher, func() ModelRunner { return &scriptedRunner{} })

	status := g.Status()
	assert.False(t, status.GPUReady)
	assert.Equal(t, "AI disabled (GPU required)", status.Message)

	_, err := g.AskContext(context.Background(), "sess-1", "", "", "what movies are here?", nil, false)
	require.Error(t, err)
	assert.Equal(t, catalogerr.KindConflict, catalogerr.KindOf(err))
}

func TestGateway_AskContext_TerminatesWhenModelEmitsNoToolCalls(t *testing.T) {
	runner := &scriptedRunner{turns: []ModelTurn{{Answer: "there are 3 movies", Done: true}}}
	g := readyGateway(t, runner, 10)

	result, err := g.AskContext(context.Background(), "sess-1", "", "", "how many movies?", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "there are 3 movies", result.Answer)
	assert.Empty(t, result.ToolLog)
	assert.Equal(t, 10, result.Status.BudgetRemaining)
}

func TestGateway_AskContext_DispatchesToolCallsAndDecrementsBudget(t *testing.T) {
	runner := &scriptedRunner{turns: []ModelTurn{
		{ToolCalls: []ToolCall{{Name: ToolCatalogSearchText, Args: map[string]any{"limit": 5}}}},
		{Answer: "done looking", Done: true},
	}}
	g := readyGateway(t, runner, 10)

	result, err := g.AskContext(context.Background(), "sess-1", "", "", "search text previews", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "done looking", result.Answer)
	require.Len(t, result.ToolLog, 1)
	assert.Equal(t, ToolCatalogSearchText, result.ToolLog[0].Tool)
	assert.Equal(t, 9, result.Status.BudgetRemaining)
}

func TestGateway_AskContext_PerCallBudgetMayOnlyLowerCeiling(t *testing.T) {
	runner := &scriptedRunner{turns: []ModelTurn{
		{ToolCalls: []ToolCall{{Name: ToolCatalogSearchText}}},
		{ToolCalls: []ToolCall{{Name: ToolCatalogSearchText}}},
		{Answer: "fallback answer", Done: true},
	}}
	g := readyGateway(t, runner, 10)

	lower := 1
	result, err := g.AskContext(context.Background(), "sess-2", "", "", "search", &lower, false)
	require.NoError(t, err)
	require.Len(t, result.ToolLog, 1)
	assert.Equal(t, 9, result.Status.BudgetRemaining)

	higher := 999
	result2, err := g.AskContext(context.Background(), "sess-2", "", "", "search again", &higher, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, result2.Status.BudgetRemaining, 9)
}

func TestGateway_AskContext_UnknownToolSurfacesInLogNotFatal(t *testing.T) {
	runner := &scriptedRunner{turns: []ModelTurn{
		{ToolCalls: []ToolCall{{Name: "not_a_real_tool"}}},
		{Answer: "handled gracefully", Done: true},
	}}
	g := readyGateway(t, runner, 10)

	result, err := g.AskContext(context.Background(), "sess-3", "", "", "do something odd", nil, false)
	require.NoError(t, err)
	require.Len(t, result.ToolLog, 1)
	assert.NotEmpty(t, result.ToolLog[0].Error)
	assert.Equal(t, "handled gracefully", result.Answer)
}

func TestDispatcher_ExportDryRunNeverWritesToDisk(t *testing.T) {
	svc, _ := newTestGatewayDeps(t)
	dir := t.TempDir()
	d := &Dispatcher{Catalog: svc, ExportsDir: dir}

	result, err := d.Dispatch(context.Background(), ToolCall{Name: ToolExportDryRun, Args: map[string]any{"filename": "out.csv"}})
	require.NoError(t, err)
	plan, ok := result.(ExportPlan)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "out.csv"), plan.TargetPath)
}

func TestDispatcher_UnknownToolIsValidationError(t *testing.T) {
	svc, _ := newTestGatewayDeps(t)
	d := &Dispatcher{Catalog: svc}

	_, err := d.Dispatch(context.Background(), ToolCall{Name: "bogus"})
	require.Error(t, err)
	assert.Equal(t, catalogerr.KindValidation, catalogerr.KindOf(err))
}

func TestSession_ConsumeOneStopsAtZero(t *testing.T) {
	s := newSession("sess", 1)
	assert.True(t, s.consumeOne())
	assert.False(t, s.consumeOne())
	assert.Equal(t, 0, s.remainingBudget())
}
