package tripflow

// End is the terminal routing target. The supervisor returns it when the
// conversation is complete.
const End = "__end__"

// Step names. The routing table is fixed: the supervisor is the hub, every
// other step is a spoke that returns control to the hub.
const (
	StepSupervisor     = "supervisor"
	StepFlight         = "flight"
	StepHotel          = "hotel"
	StepItinerary      = "itinerary"
	StepParallelSearch = "parallel_search"
)

// Step is a named unit of work in the planning workflow. A step consumes the
// travel state and produces an updated copy.
//
// State is passed by value. Steps modify and return a new state value rather
// than relying on pointer mutation, and must not touch fields outside their
// responsibility.
type Step interface {
	// Name returns the step's routing name.
	Name() string

	// Run executes the step against the current state.
	Run(ctx Context, state TravelState) (TravelState, error)
}

// Decision is the supervisor's routing verdict: the next step name or End.
type Decision struct {
	// Next is a step name or End.
	Next string
	// Reason is a short human-readable routing explanation, kept for
	// logging and the conversation transcript.
	Reason string
}

// Router picks the next step after every spoke returns to the hub.
//
// A router must be deterministic given identical state and identical
// language-model output; any randomness lives inside the inference client.
type Router interface {
	// Decide interprets the state and emits exactly one routing decision.
	// It may update the state (extracted preferences, transcript turns).
	Decide(ctx Context, state TravelState) (TravelState, Decision, error)
}
