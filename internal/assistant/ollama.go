package assistant

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// OllamaRunner drives a local Ollama chat endpoint. No pack example ships
// an Ollama client, so this talks to its HTTP API directly (stdlib
// net/http); see DESIGN.md.
type OllamaRunner struct {
	host  string
	model string
	http  *http.Client
}

// NewOllamaRunner builds a runner against host for model.
func NewOllamaRunner(host, model string, timeout time.Duration) *OllamaRunner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaRunner{host: host, model: model, http: &http.Client{Timeout: timeout}}
}

func (r *OllamaRunner) Name() string { return r.model }

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// Next sends the accumulated conversation to Ollama and returns its reply
// as a final answer. Ollama's tool-calling support varies by model and
// version; this runner treats every reply as a final answer rather than
// attempting to parse model-specific tool-call syntax, leaving the tool
// loop's dispatch surface available for a future model that emits a
// structured tool-call format this runner understands.
func (r *OllamaRunner) Next(ctx context.Context, systemPrompt string, history []Message, question, ragContext string) (ModelTurn, error) {
	messages := make([]ollamaChatMessage, 0, len(history)+2)
	messages = append(messages, ollamaChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}
	userContent := question
	if ragContext != "" {
		userContent = fmt.Sprintf("Context:\n%s\n\nQuestion: %s", ragContext, question)
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: userContent})

	body, err := json.Marshal(ollamaChatRequest{Model: r.model, Messages: messages, Stream: false})
	if err != nil {
		return ModelTurn{}, catalogerr.Wrap(catalogerr.KindInternal, "encode ollama request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return ModelTurn{}, catalogerr.Wrap(catalogerr.KindInternal, "build ollama request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return ModelTurn{}, catalogerr.Conflict("assistant runtime unavailable, retry later")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ModelTurn{}, catalogerr.Conflict(fmt.Sprintf("assistant runtime returned %d", resp.StatusCode))
	}

	var decoded ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ModelTurn{}, catalogerr.Wrap(catalogerr.KindInternal, "decode ollama response", err)
	}

	return ModelTurn{Answer: decoded.Message.Content, Done: true}, nil
}
