// Package agent implements the planning agents: the supervisor that routes
// the conversation and the spoke specialists for flights, hotels, and
// itinerary assembly.
package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/llm"
)

// Supervisor is the routing hub. Structural rules decide whenever the state
// determines the next step; the language model fills in the two gaps that
// need understanding text: extracting preferences from the user's request
// and classifying intent when no rule applies. Given the same state and the
// same model output, the decision is always the same.
type Supervisor struct {
	llm llm.Client
}

// NewSupervisor creates the routing hub over the given inference client.
func NewSupervisor(client llm.Client) *Supervisor {
	return &Supervisor{llm: client}
}

// Decide implements tripflow.Router.
func (s *Supervisor) Decide(ctx tripflow.Context, state tripflow.TravelState) (tripflow.TravelState, tripflow.Decision, error) {
	if state.Err != nil {
		if decision, ok := recoveryRoute(state); ok {
			ctx.Logger().Info("recovery route",
				"failed_step", state.Err.Step,
				"error_kind", string(state.Err.Kind),
				"next", decision.Next,
			)
			return state, decision, nil
		}
	}

	if state.Itinerary != nil && state.Itinerary.HumanApproved {
		state.AppendMessage(tripflow.RoleAssistant,
			"Your itinerary is confirmed. Have a wonderful trip to "+state.Itinerary.Destination+"!")
		return state, tripflow.Decision{Next: tripflow.End, Reason: "itinerary approved"}, nil
	}

	// Make sure the essentials are known before any search is dispatched.
	if len(missingEssentials(state)) > 0 {
		var err error
		state, err = s.extractPreferences(ctx, state)
		if err != nil {
			return state, tripflow.Decision{}, err
		}
		if missing := missingEssentials(state); len(missing) > 0 {
			state.AppendMessage(tripflow.RoleAssistant,
				"To plan your trip I still need your "+strings.Join(missing, ", ")+".")
			return state, tripflow.Decision{Next: tripflow.End, Reason: "waiting for trip details"}, nil
		}
	}

	hasFlights := len(state.FlightOptions) > 0
	hasHotels := len(state.HotelOptions) > 0

	switch {
	case !hasFlights && !hasHotels:
		state.AppendMessage(tripflow.RoleAssistant, fmt.Sprintf(
			"Searching flights and hotels for your trip from %s to %s...",
			state.Preference(prefOrigin), state.Preference(prefDestination)))
		return state, tripflow.Decision{Next: tripflow.StepParallelSearch, Reason: "no candidate options yet"}, nil
	case !hasFlights:
		return state, tripflow.Decision{Next: tripflow.StepFlight, Reason: "flight options missing"}, nil
	case !hasHotels:
		return state, tripflow.Decision{Next: tripflow.StepHotel, Reason: "hotel options missing"}, nil
	case state.Itinerary == nil:
		return state, tripflow.Decision{Next: tripflow.StepItinerary, Reason: "selections settled, assembling plan"}, nil
	}

	// No structural rule applies; ask the model to classify intent.
	return s.routeWithModel(ctx, state)
}

// recoveryRoute picks the next step after a failure. A missing-precondition
// failure reruns whichever selection is absent; search and inference
// failures retry the step that failed. Anything else falls through to the
// normal routing rules.
func recoveryRoute(state tripflow.TravelState) (tripflow.Decision, bool) {
	rec := state.Err

	switch rec.Kind {
	case tripflow.KindPrecondition:
		if len(state.FlightOptions) == 0 || !state.Approved(tripflow.StepFlight) {
			return tripflow.Decision{Next: tripflow.StepFlight, Reason: "recovering missing flight selection"}, true
		}
		if len(state.HotelOptions) == 0 || !state.Approved(tripflow.StepHotel) {
			return tripflow.Decision{Next: tripflow.StepHotel, Reason: "recovering missing hotel selection"}, true
		}
		return tripflow.Decision{}, false

	case tripflow.KindSearch, tripflow.KindInference:
		if rec.Step == "" || rec.Step == tripflow.StepSupervisor {
			return tripflow.Decision{}, false
		}
		return tripflow.Decision{Next: rec.Step, Reason: "retrying after " + string(rec.Kind) + " error"}, true
	}

	return tripflow.Decision{}, false
}

// extractPreferences asks the model to pull structured trip details out of
// the conversation and merges them into the state.
func (s *Supervisor) extractPreferences(ctx tripflow.Context, state tripflow.TravelState) (tripflow.TravelState, error) {
	resp, err := s.llm.Complete(ctx, llm.Request{
		System:      extractionPrompt,
		Messages:    state.Messages,
		Temperature: 0,
	})
	if err != nil {
		return state, err
	}

	prefs, err := decodePreferences(resp.Content)
	if err != nil {
		return state, &tripflow.InferenceError{Provider: "extraction", Err: err}
	}
	state.MergePreferences(prefs)

	ctx.Logger().Debug("preferences extracted", "known", len(state.UserPreferences))
	return state, nil
}

// routeWithModel classifies the user's intent into one of the route tokens.
func (s *Supervisor) routeWithModel(ctx tripflow.Context, state tripflow.TravelState) (tripflow.TravelState, tripflow.Decision, error) {
	resp, err := s.llm.Complete(ctx, llm.Request{
		System:      supervisorPrompt,
		Messages:    state.Messages,
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return state, tripflow.Decision{}, err
	}

	token := strings.ToLower(strings.TrimSpace(resp.Content))
	if fields := strings.Fields(token); len(fields) > 0 {
		token = fields[0]
	}

	switch token {
	case tripflow.StepFlight, tripflow.StepHotel, tripflow.StepParallelSearch, tripflow.StepItinerary:
		return state, tripflow.Decision{Next: token, Reason: "model classified intent"}, nil
	case "end", tripflow.End:
		return state, tripflow.Decision{Next: tripflow.End, Reason: "model classified intent"}, nil
	}

	return state, tripflow.Decision{}, fmt.Errorf("%w: model answered %q", tripflow.ErrUnroutable, token)
}

// decodePreferences parses the extraction reply. Models wrap JSON in code
// fences often enough that the fences are stripped before unmarshalling, and
// numeric values are accepted for travelers and budget.
func decodePreferences(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			raw = raw[start : end+1]
		}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse preference json: %w", err)
	}

	prefs := make(map[string]string, len(parsed))
	for key, value := range parsed {
		switch v := value.(type) {
		case string:
			prefs[key] = strings.TrimSpace(v)
		case float64:
			if v == float64(int64(v)) {
				prefs[key] = strconv.FormatInt(int64(v), 10)
			} else {
				prefs[key] = strconv.FormatFloat(v, 'f', 2, 64)
			}
		}
	}
	return prefs, nil
}
