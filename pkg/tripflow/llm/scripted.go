package llm

import (
	"context"
	"sync"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
)

// Scripted is a Client that replays canned responses in order, sticking on
// the last one. It records every request it receives. Used by tests and by
// the demo mode of the server when no API key is configured.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error

	// Requests holds every request received, in order.
	Requests []Request
}

// NewScripted creates a scripted client from the given responses.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Fail makes every subsequent Complete call return err wrapped as an
// InferenceError.
func (s *Scripted) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Complete implements Client.
func (s *Scripted) Complete(_ context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)

	if s.err != nil {
		return nil, &tripflow.InferenceError{Provider: "scripted", Err: s.err}
	}
	if len(s.responses) == 0 {
		return &Response{}, nil
	}

	content := s.responses[s.next]
	if s.next < len(s.responses)-1 {
		s.next++
	}
	return &Response{Content: content}, nil
}
