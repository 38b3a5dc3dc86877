package tripflow

import (
	"fmt"
	"time"
)

// parallelSearchStep is the marker spoke for concurrent search. The engine
// intercepts it in the dispatch loop and fans out to the flight and hotel
// steps; its Run is never called.
type parallelSearchStep struct{}

func (parallelSearchStep) Name() string { return StepParallelSearch }

func (parallelSearchStep) Run(_ Context, state TravelState) (TravelState, error) {
	return state, nil
}

// branchResult holds the outcome of one concurrent search branch.
type branchResult struct {
	step     string
	state    TravelState
	err      error
	duration time.Duration
}

// runParallelSearch executes the flight and hotel steps concurrently over
// independent clones of the state, then merges the results back
// sequentially, flight before hotel.
//
// The merge is partial-failure tolerant: a failed branch contributes exactly
// one error record while the other branch's results are retained. Only when
// both branches fail does the whole step fail.
func (e *Engine) runParallelSearch(ctx Context, state TravelState) (TravelState, error) {
	flightStep, ok := e.steps[StepFlight]
	if !ok {
		return state, fmt.Errorf("parallel search: %s step not registered", StepFlight)
	}
	hotelStep, ok := e.steps[StepHotel]
	if !ok {
		return state, fmt.Errorf("parallel search: %s step not registered", StepHotel)
	}

	baseMessages := len(state.Messages)
	results := make(chan branchResult, 2)

	for _, step := range []Step{flightStep, hotelStep} {
		go func(step Step, branchState TravelState) {
			start := time.Now()
			out, err := e.executeStep(ctx, step, branchState)
			results <- branchResult{
				step:     step.Name(),
				state:    out,
				err:      err,
				duration: time.Since(start),
			}
		}(step, state.Clone())
	}

	byStep := make(map[string]branchResult, 2)
	for i := 0; i < 2; i++ {
		r := <-results
		byStep[r.step] = r
	}

	flight, hotel := byStep[StepFlight], byStep[StepHotel]

	if flight.err != nil && hotel.err != nil {
		// Nothing to salvage; surface the flight branch error and let the
		// engine record it against the parallel step.
		return state, flight.err
	}

	// Deterministic merge order: flight results first, then hotel. Failed
	// branches contribute only their error record; their state mutations
	// are discarded.
	for _, r := range []branchResult{flight, hotel} {
		if r.err != nil {
			state.RecordFailure(r.step, r.err)
			continue
		}
		switch r.step {
		case StepFlight:
			state.FlightOptions = r.state.FlightOptions
		case StepHotel:
			state.HotelOptions = r.state.HotelOptions
		}
		state.MergePreferences(r.state.UserPreferences)
		state.Messages = append(state.Messages, r.state.Messages[baseMessages:]...)
	}

	ctx.Logger().Info("parallel search completed",
		"flight_ok", flight.err == nil,
		"hotel_ok", hotel.err == nil,
		"flight_ms", flight.duration.Milliseconds(),
		"hotel_ms", hotel.duration.Milliseconds())

	return state, nil
}
