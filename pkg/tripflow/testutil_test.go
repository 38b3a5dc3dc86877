package tripflow

import (
	"context"
	"sync"
)

// Test doubles shared across the engine tests.

// stepFunc adapts a function to the Step interface.
type stepFunc struct {
	name string
	fn   func(Context, TravelState) (TravelState, error)
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Run(ctx Context, state TravelState) (TravelState, error) {
	return s.fn(ctx, state)
}

func makeStep(name string, fn func(Context, TravelState) (TravelState, error)) Step {
	return stepFunc{name: name, fn: fn}
}

// routerFunc adapts a function to the Router interface.
type routerFunc func(Context, TravelState) (TravelState, Decision, error)

func (f routerFunc) Decide(ctx Context, state TravelState) (TravelState, Decision, error) {
	return f(ctx, state)
}

// execLog records step executions. Safe for the concurrent branches of
// parallel search.
type execLog struct {
	mu    sync.Mutex
	names []string
}

func (l *execLog) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *execLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func (l *execLog) count(name string) int {
	n := 0
	for _, got := range l.snapshot() {
		if got == name {
			n++
		}
	}
	return n
}

// Canned candidates used by the stub search steps.
var (
	testFlight = FlightOption{
		Airline:       "United",
		DepartureTime: "2026-09-10 08:00",
		ArrivalTime:   "2026-09-10 20:15",
		Price:         640,
		Currency:      "USD",
	}
	testHotel = HotelOption{
		Name:     "Hotel Lumiere",
		Price:    180,
		Currency: "USD",
		Rating:   4.4,
	}
)

// makeFlightStep returns a step producing one canned flight option.
func makeFlightStep(log *execLog) Step {
	return makeStep(StepFlight, func(ctx Context, s TravelState) (TravelState, error) {
		log.record(StepFlight)
		s.FlightOptions = []FlightOption{testFlight}
		s.AppendMessage(RoleAssistant, "found 1 flight")
		return s, nil
	})
}

// makeHotelStep returns a step producing one canned hotel option.
func makeHotelStep(log *execLog) Step {
	return makeStep(StepHotel, func(ctx Context, s TravelState) (TravelState, error) {
		log.record(StepHotel)
		s.HotelOptions = []HotelOption{testHotel}
		s.AppendMessage(RoleAssistant, "found 1 hotel")
		return s, nil
	})
}

// makeItineraryStep returns a step assembling a minimal plan from the
// selected options.
func makeItineraryStep(log *execLog) Step {
	return makeStep(StepItinerary, func(ctx Context, s TravelState) (TravelState, error) {
		log.record(StepItinerary)
		s.Itinerary = &Itinerary{
			Destination: "Paris",
			Flight:      s.FlightOptions[0],
			Hotel:       s.HotelOptions[0],
			Days:        []DayPlan{{Date: "2026-09-10", Activities: []string{"Arrive"}}},
		}
		s.AppendMessage(RoleAssistant, "here is your plan")
		return s, nil
	})
}

// makeFailingStep returns a step that always fails with the given error.
func makeFailingStep(name string, log *execLog, err error) Step {
	return makeStep(name, func(ctx Context, s TravelState) (TravelState, error) {
		log.record(name)
		return s, err
	})
}

// planningRouter mirrors the production routing rules without a language
// model: retry the failed step, then fill in whatever the state is missing.
func planningRouter() Router {
	return routerFunc(func(ctx Context, s TravelState) (TravelState, Decision, error) {
		if s.Err != nil && s.Err.Step != StepSupervisor {
			return s, Decision{Next: s.Err.Step, Reason: "retry"}, nil
		}
		switch {
		case s.Itinerary != nil && s.Itinerary.HumanApproved:
			return s, Decision{Next: End, Reason: "done"}, nil
		case len(s.FlightOptions) == 0 && len(s.HotelOptions) == 0:
			return s, Decision{Next: StepParallelSearch, Reason: "nothing found yet"}, nil
		case len(s.FlightOptions) == 0:
			return s, Decision{Next: StepFlight, Reason: "flights missing"}, nil
		case len(s.HotelOptions) == 0:
			return s, Decision{Next: StepHotel, Reason: "hotels missing"}, nil
		case s.Itinerary == nil:
			return s, Decision{Next: StepItinerary, Reason: "assemble plan"}, nil
		}
		return s, Decision{Next: End, Reason: "done"}, nil
	})
}

// alwaysRoute returns a router that ignores the state and always emits the
// same decision.
func alwaysRoute(next string) Router {
	return routerFunc(func(ctx Context, s TravelState) (TravelState, Decision, error) {
		return s, Decision{Next: next}, nil
	})
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
