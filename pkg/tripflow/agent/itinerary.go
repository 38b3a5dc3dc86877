package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/llm"
	"github.com/randalmurphal/tripflow/pkg/tripflow/search"
)

// Planner assembles the day-by-day itinerary from the approved flight and
// hotel selections plus destination background from the search provider.
type Planner struct {
	llm    llm.Client
	search *search.Client
}

// NewPlanner creates the itinerary step.
func NewPlanner(client llm.Client, searchClient *search.Client) *Planner {
	return &Planner{llm: client, search: searchClient}
}

// Name implements tripflow.Step.
func (p *Planner) Name() string { return tripflow.StepItinerary }

// Run implements tripflow.Step. Both selections must exist and carry a human
// sign-off before a plan is assembled.
func (p *Planner) Run(ctx tripflow.Context, state tripflow.TravelState) (tripflow.TravelState, error) {
	if len(state.FlightOptions) == 0 || !state.Approved(tripflow.StepFlight) {
		return state, &tripflow.PreconditionError{Step: tripflow.StepItinerary, Missing: tripflow.StepFlight}
	}
	if len(state.HotelOptions) == 0 || !state.Approved(tripflow.StepHotel) {
		return state, &tripflow.PreconditionError{Step: tripflow.StepItinerary, Missing: tripflow.StepHotel}
	}

	params := searchParams(state)
	info, err := p.search.Destination(ctx, params)
	if err != nil {
		return state, err
	}

	// The top candidate of each approved list is the selection.
	itinerary := &tripflow.Itinerary{
		Destination: params.Destination,
		Flight:      state.FlightOptions[0],
		Hotel:       state.HotelOptions[0],
		Info:        *info,
		Days:        buildDays(params, state.FlightOptions[0], state.HotelOptions[0], info),
	}
	state.Itinerary = itinerary

	state.AppendMessage(tripflow.RoleAssistant, p.present(ctx, itinerary))
	ctx.Logger().Info("itinerary assembled", "destination", params.Destination, "days", len(itinerary.Days))
	return state, nil
}

// buildDays lays the trip out day by day: arrival and check-in first,
// attractions through the middle, checkout and departure last.
func buildDays(params search.Params, flight tripflow.FlightOption, hotel tripflow.HotelOption, info *tripflow.DestinationInfo) []tripflow.DayPlan {
	start, ok := parseDate(params.DepartDate)
	if !ok {
		return nil
	}
	end, ok := parseDate(params.ReturnDate)
	if !ok || end.Before(start) {
		end = start
	}

	total := int(end.Sub(start).Hours()/24) + 1
	days := make([]tripflow.DayPlan, 0, total)

	for i := 0; i < total; i++ {
		date := start.AddDate(0, 0, i)
		plan := tripflow.DayPlan{Date: date.Format(dateLayout)}

		switch {
		case i == 0:
			plan.Activities = append(plan.Activities,
				fmt.Sprintf("Arrive on %s flight at %s", flight.Airline, flight.ArrivalTime),
				"Check in at "+hotel.Name)
			if total == 1 {
				plan.Activities = append(plan.Activities, "Depart on the return flight")
			}
		case i == total-1:
			plan.Activities = append(plan.Activities,
				"Check out of "+hotel.Name,
				"Depart on the return flight")
		default:
			plan.Activities = append(plan.Activities, dayActivity(info, i-1, params.Destination))
		}

		days = append(days, plan)
	}
	return days
}

func dayActivity(info *tripflow.DestinationInfo, index int, destination string) string {
	if info == nil || len(info.Attractions) == 0 {
		return "Explore " + destination + " at your own pace"
	}
	return "Visit " + info.Attractions[index%len(info.Attractions)]
}

// present turns the assembled plan into the chat reply. The model writes the
// narration; when it is unavailable the deterministic summary stands in, so
// a narration hiccup never discards a finished plan.
func (p *Planner) present(ctx tripflow.Context, itinerary *tripflow.Itinerary) string {
	encoded, err := json.MarshalIndent(itinerary, "", "  ")
	if err == nil && p.llm != nil {
		resp, llmErr := p.llm.Complete(ctx, llm.Request{
			System:   itineraryPrompt,
			Messages: []tripflow.Message{{Role: tripflow.RoleUser, Content: string(encoded)}},
		})
		if llmErr == nil && strings.TrimSpace(resp.Content) != "" {
			return resp.Content
		}
		if llmErr != nil {
			ctx.Logger().Warn("itinerary narration failed, using plain summary", "error", llmErr)
		}
	}
	return summarizeItinerary(itinerary)
}

func summarizeItinerary(itinerary *tripflow.Itinerary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is your %d-day plan for %s:\n", len(itinerary.Days), itinerary.Destination)
	fmt.Fprintf(&b, "Flight: %s, departs %s - %s\n",
		itinerary.Flight.Airline, itinerary.Flight.DepartureTime,
		formatPrice(itinerary.Flight.Price, itinerary.Flight.Currency))
	fmt.Fprintf(&b, "Hotel: %s - %s per night\n",
		itinerary.Hotel.Name, formatPrice(itinerary.Hotel.Price, itinerary.Hotel.Currency))
	for _, day := range itinerary.Days {
		fmt.Fprintf(&b, "%s: %s\n", day.Date, strings.Join(day.Activities, "; "))
	}
	b.WriteString("Does this plan look good to you?")
	return b.String()
}
