package assistant

import (
	"context"
)

// ModelTurn is one round-trip with the underlying model: either a set of
// tool calls to dispatch, or a final answer.
type ModelTurn struct {
	ToolCalls []ToolCall
	Answer    string
	Done      bool
}

// ModelRunner is the LLM-agnostic contract the tool loop drives: send a
// system prompt, prior history, and the user question (optionally
// augmented with retrieved context), get back either tool calls to
// dispatch or a final answer. Runtime/model selection lives entirely
// behind this seam.
type ModelRunner interface {
	Name() string
	Next(ctx context.Context, systemPrompt string, history []Message, question, ragContext string) (ModelTurn, error)
}

const defaultSystemPrompt = "You are the VideoCatalog assistant. Use tools to answer questions about the local catalog; never assume facts about files you have not looked up."
