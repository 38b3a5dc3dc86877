package agent

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/search"
)

// Hotel is the hotel search specialist.
type Hotel struct {
	search *search.Client
}

// NewHotel creates the hotel search step.
func NewHotel(client *search.Client) *Hotel {
	return &Hotel{search: client}
}

// Name implements tripflow.Step.
func (h *Hotel) Name() string { return tripflow.StepHotel }

// Run implements tripflow.Step.
func (h *Hotel) Run(ctx tripflow.Context, state tripflow.TravelState) (tripflow.TravelState, error) {
	params := searchParams(state)
	if params.Destination == "" || params.DepartDate == "" {
		return state, &tripflow.PreconditionError{Step: tripflow.StepHotel, Missing: tripflow.StepSupervisor}
	}

	options, err := h.search.Hotels(ctx, params)
	if err != nil {
		return state, err
	}

	state.HotelOptions = options
	state.AppendMessage(tripflow.RoleAssistant, summarizeHotels(params, options))
	ctx.Logger().Info("hotel options found", "count", len(options))
	return state, nil
}

func summarizeHotels(params search.Params, options []tripflow.HotelOption) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d hotel option(s) in %s:\n", len(options), params.Destination)
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s", i+1, opt.Name)
		if opt.Rating > 0 {
			fmt.Fprintf(&b, " (%.1f stars)", opt.Rating)
		}
		fmt.Fprintf(&b, " - %s per night", formatPrice(opt.Price, opt.Currency))
		if len(opt.Amenities) > 0 {
			fmt.Fprintf(&b, ", %s", strings.Join(opt.Amenities, ", "))
		}
		b.WriteByte('\n')
	}
	b.WriteString("Would any of these work for your stay?")
	return b.String()
}
