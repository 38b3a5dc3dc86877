package agent

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/search"
)

// Flight is the flight search specialist. It turns the accumulated
// preferences into a flight query and stores the candidates on the state for
// the human-approval checkpoint.
type Flight struct {
	search *search.Client
}

// NewFlight creates the flight search step.
func NewFlight(client *search.Client) *Flight {
	return &Flight{search: client}
}

// Name implements tripflow.Step.
func (f *Flight) Name() string { return tripflow.StepFlight }

// Run implements tripflow.Step.
func (f *Flight) Run(ctx tripflow.Context, state tripflow.TravelState) (tripflow.TravelState, error) {
	params := searchParams(state)
	if params.Origin == "" || params.Destination == "" || params.DepartDate == "" {
		return state, &tripflow.PreconditionError{Step: tripflow.StepFlight, Missing: tripflow.StepSupervisor}
	}

	options, err := f.search.Flights(ctx, params)
	if err != nil {
		return state, err
	}

	state.FlightOptions = options
	state.AppendMessage(tripflow.RoleAssistant, summarizeFlights(params, options))
	ctx.Logger().Info("flight options found", "count", len(options))
	return state, nil
}

func summarizeFlights(params search.Params, options []tripflow.FlightOption) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d flight option(s) from %s to %s:\n",
		len(options), params.Origin, params.Destination)
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s, departs %s, arrives %s", i+1, opt.Airline, opt.DepartureTime, opt.ArrivalTime)
		if opt.Stops > 0 {
			fmt.Fprintf(&b, ", %d stop(s)", opt.Stops)
		}
		fmt.Fprintf(&b, " - %s\n", formatPrice(opt.Price, opt.Currency))
	}
	b.WriteString("Shall I book around one of these?")
	return b.String()
}

func formatPrice(price float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", price, currency)
}
