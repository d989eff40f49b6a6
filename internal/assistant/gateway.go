package assistant

import (
	"context"
	"fmt"
	"sync"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/config"
	"github.com/videocatalog/videocatalog/internal/scheduler"
)

const hardToolLoopLimit = 50

// StatusResponse is the GET /v1/assistant/status payload.
type StatusResponse struct {
	Enabled bool   `json:"enabled"`
	GPUReady bool  `json:"gpu_ready"`
	Message string `json:"message,omitempty"`
	Runtime string `json:"runtime,omitempty"`
	Model   string `json:"model,omitempty"`
}

// AskStatus reports the runtime state alongside an ask_context answer.
type AskStatus struct {
	Runtime         string `json:"runtime"`
	Model           string `json:"model"`
	GPU             bool   `json:"gpu"`
	BudgetRemaining int    `json:"budget_remaining"`
}

// AskResult is the ask_context response shape.
type AskResult struct {
	Answer  string         `json:"answer"`
	ToolLog []ToolLogEntry `json:"tool_log"`
	Status  AskStatus      `json:"status"`
}

// Gateway gates, lazily attaches, and serves the assistant's tool-calling
// loop. It probes GPU readiness once at construction and re-probes only on
// explicit request, per the gate's "probe once at startup" rule. The model
// runtime itself is not built until the first ask_context call reaches
// past the gate: runnerFactory is invoked exactly once, on that call, and
// its result is reused by every later call.
type Gateway struct {
	cfg           config.AssistantSettings
	probe         *GPUProbe
	sched         *scheduler.Scheduler
	dispatcher    *Dispatcher
	runnerFactory func() ModelRunner

	mu        sync.Mutex
	readiness Readiness
	runner    ModelRunner
	sessions  map[string]*Session
}

// NewGateway builds a gateway and runs the initial GPU probe. runnerFactory
// builds the model runtime; it is not called until the gate first opens
// for a real ask_context call.
func NewGateway(ctx context.Context, cfg config.AssistantSettings, probe *GPUProbe, sched *scheduler.Scheduler, dispatcher *Dispatcher, runnerFactory func() ModelRunner) *Gateway {
	g := &Gateway{
		cfg:           cfg,
		probe:         probe,
		sched:         sched,
		dispatcher:    dispatcher,
		runnerFactory: runnerFactory,
		sessions:      make(map[string]*Session),
	}
	if cfg.RequireGPU {
		g.readiness = probe.Probe(ctx)
	} else {
		g.readiness = Readiness{Ready: true}
	}
	return g
}

// Reprobe re-runs the GPU probe on explicit request.
func (g *Gateway) Reprobe(ctx context.Context) Readiness {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cfg.RequireGPU {
		g.readiness = g.probe.Probe(ctx)
	} else {
		g.readiness = Readiness{Ready: true}
	}
	return g.readiness
}

func (g *Gateway) gateOpen() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Enabled {
		return false, "AI disabled (GPU required)"
	}
	if !g.readiness.Ready {
		reason := g.readiness.Reason
		if reason == "" {
			reason = "AI disabled (GPU required)"
		}
		return false, reason
	}
	return true, ""
}

// Status reports the current gate state without attaching the runtime.
func (g *Gateway) Status() StatusResponse {
	g.mu.Lock()
	ready := g.readiness
	g.mu.Unlock()

	open, reason := g.gateOpen()
	resp := StatusResponse{Enabled: g.cfg.Enabled, GPUReady: ready.Ready, Message: reason}
	if open {
		resp.Runtime = g.cfg.OllamaHost
		resp.Model = g.cfg.Model
	}
	return resp
}

func (g *Gateway) session(id string) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[id]; ok {
		return s
	}
	s := newSession(id, g.cfg.ToolBudget)
	g.sessions[id] = s
	return s
}

// attachedRunner lazily builds the model runtime on first use and reuses
// it on every later call, the "lazily instantiates the assistant service
// on first call... subsequent calls reuse the session" rule.
func (g *Gateway) attachedRunner() ModelRunner {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runner == nil {
		g.runner = g.runnerFactory()
	}
	return g.runner
}

// AskContext runs one ask_context call to completion: gate check, lazy
// attach, GPU-lock acquisition, tool-calling loop, and session bookkeeping.
func (g *Gateway) AskContext(ctx context.Context, sessionID, itemID, itemPayload, question string, toolBudget *int, useRAG bool) (AskResult, error) {
	if open, reason := g.gateOpen(); !open {
		return AskResult{}, catalogerr.Conflict(reason)
	}

	runner := g.attachedRunner()
	sess := g.session(sessionID)

	callBudget := sess.remainingBudget()
	if toolBudget != nil && *toolBudget < callBudget {
		callBudget = *toolBudget
	}

	holder := fmt.Sprintf("assistant:%s", sessionID)
	if err := g.sched.AcquireLock(ctx, scheduler.GPULock, holder); err != nil {
		return AskResult{}, catalogerr.Conflict("assistant runtime busy, retry later")
	}
	defer func() { _ = g.sched.ReleaseLock(ctx, scheduler.GPULock, holder) }()

	ragContext := ""
	if useRAG && itemPayload != "" {
		if result, err := g.dispatcher.Dispatch(ctx, ToolCall{Name: ToolSemanticSearch, Args: map[string]any{"query": question, "k": 5}}); err == nil {
			ragContext = fmt.Sprintf("%v", result)
		}
	}

	sess.appendHistory(Message{Role: "user", Content: question})

	answer := ""
	for i := 0; i < hardToolLoopLimit; i++ {
		turn, err := runner.Next(ctx, defaultSystemPrompt, sess.snapshotHistory(), question, ragContext)
		if err != nil {
			return AskResult{}, err
		}

		if len(turn.ToolCalls) == 0 {
			answer = turn.Answer
			break
		}
		if callBudget <= 0 {
			answer = turn.Answer
			break
		}

		for _, call := range turn.ToolCalls {
			if callBudget <= 0 || !sess.consumeOne() {
				break
			}
			callBudget--

			result, derr := g.dispatcher.Dispatch(ctx, call)
			entry := ToolLogEntry{Tool: call.Name, Args: call.Args}
			msg := Message{Role: "tool"}
			if derr != nil {
				entry.Error = derr.Error()
				msg.Content = fmt.Sprintf("tool %s error: %v", call.Name, derr)
			} else {
				entry.Result = result
				msg.Content = fmt.Sprintf("tool %s result: %v", call.Name, result)
			}
			sess.appendToolLog(entry)
			sess.appendHistory(msg)
		}
	}

	sess.appendHistory(Message{Role: "assistant", Content: answer})

	return AskResult{
		Answer:  answer,
		ToolLog: sess.snapshotToolLog(),
		Status: AskStatus{
			Runtime:         g.cfg.OllamaHost,
			Model:           runner.Name(),
			GPU:             true,
			BudgetRemaining: sess.remainingBudget(),
		},
	}, nil
}
