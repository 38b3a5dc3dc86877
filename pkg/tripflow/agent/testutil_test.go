package agent

import (
	"context"
	"sync"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/search"
)

// stubProvider is a canned search.Provider. It records every query it
// receives and can be primed to fail.
type stubProvider struct {
	mu      sync.Mutex
	queries []search.QueryType
	err     error
}

var (
	stubFlight = tripflow.FlightOption{
		Airline:       "United",
		DepartureTime: "2026-09-10 08:15",
		ArrivalTime:   "2026-09-10 16:40",
		Stops:         1,
		Price:         640,
		Currency:      "USD",
	}
	stubHotel = tripflow.HotelOption{
		Name:      "Hotel Lumiere",
		Price:     180,
		Currency:  "USD",
		Rating:    4.4,
		Amenities: []string{"wifi", "breakfast"},
	}
	stubInfo = tripflow.DestinationInfo{
		Name:        "Paris",
		Description: "Capital of France.",
		Attractions: []string{"Louvre Museum", "Eiffel Tower"},
		LocalTips:   []string{"Buy metro carnets in bulk."},
	}
)

func (p *stubProvider) Fetch(_ context.Context, queryType search.QueryType, _ search.Params) (*search.Results, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queries = append(p.queries, queryType)
	if p.err != nil {
		return nil, p.err
	}

	switch queryType {
	case search.QueryFlight:
		return &search.Results{Flights: []tripflow.FlightOption{stubFlight}}, nil
	case search.QueryHotel:
		return &search.Results{Hotels: []tripflow.HotelOption{stubHotel}}, nil
	default:
		info := stubInfo
		return &search.Results{Destination: &info}, nil
	}
}

func (p *stubProvider) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queries)
}

func newStubSearch() (*search.Client, *stubProvider) {
	provider := &stubProvider{}
	return search.NewClient(provider), provider
}

// plannedState returns a state with every essential preference known.
func plannedState() tripflow.TravelState {
	state := tripflow.NewState("Plan me a trip to Paris")
	state.MergePreferences(map[string]string{
		prefOrigin:      "SFO",
		prefDestination: "Paris",
		prefDepartDate:  "2026-09-10",
		prefReturnDate:  "2026-09-13",
		prefTravelers:   "2",
	})
	return state
}

func approve(state *tripflow.TravelState, steps ...string) {
	for _, step := range steps {
		state.ApplyApproval(step, true, "")
	}
}

func testCtx() tripflow.Context {
	return tripflow.NewContext(context.Background())
}
