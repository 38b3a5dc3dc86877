// Package llm provides the language inference client used by the planning
// agents for intent classification and preference extraction.
package llm

import (
	"context"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
)

// Provider names for inference backends.
const (
	// ProviderRemote is a hosted OpenAI-compatible API.
	ProviderRemote = "remote-api"
	// ProviderLocal is a local model behind an OpenAI-compatible endpoint
	// (ollama, llama.cpp server, and friends).
	ProviderLocal = "local-model"
)

// Request carries the conversation context for one inference call.
type Request struct {
	// System is the agent's instruction prompt.
	System string
	// Messages is the dialogue history, oldest first.
	Messages []tripflow.Message
	// Temperature, when > 0, overrides the provider default.
	Temperature float64
	// MaxTokens, when > 0, caps the completion length.
	MaxTokens int
}

// Response is the model's reply.
type Response struct {
	Content string
}

// Client is the language inference capability. Implementations wrap a
// remote API or a local model; failures surface as
// *tripflow.InferenceError.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
