package assistant

import (
	"sync"
	"time"
)

// Message is one turn of conversation history, either from the user, the
// model, or a tool result folded back into the transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolLogEntry records one dispatched tool call for the response's
// tool_log and for later session replay.
type ToolLogEntry struct {
	Tool   string `json:"tool"`
	Args   any    `json:"args"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Session holds one assistant conversation's history and remaining tool
// budget. Every field is guarded by mu, which the gateway's tool loop
// releases before each network call (model turn or tool dispatch) so a
// slow call never holds up anything else observing or mutating the
// session.
type Session struct {
	ID       string
	mu       sync.Mutex
	budget   int
	history  []Message
	toolLog  []ToolLogEntry
	lastUsed time.Time
}

func newSession(id string, budget int) *Session {
	return &Session{ID: id, budget: budget, lastUsed: time.Now()}
}

// remainingBudget reports the session's current tool budget.
func (s *Session) remainingBudget() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget
}

// consumeOne decrements the budget by one and reports whether a call was
// still available. A session with budget <= 0 never goes negative.
func (s *Session) consumeOne() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budget <= 0 {
		return false
	}
	s.budget--
	return true
}

func (s *Session) appendHistory(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
	s.lastUsed = time.Now()
}

func (s *Session) appendToolLog(entry ToolLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolLog = append(s.toolLog, entry)
}

// snapshotHistory copies the history under lock so the caller can hand it
// to a model runner without holding the session locked across the call.
func (s *Session) snapshotHistory() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) snapshotToolLog() []ToolLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ToolLogEntry, len(s.toolLog))
	copy(out, s.toolLog)
	return out
}

func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}
