package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
)

// DefaultBaseURL is the hosted SerpAPI endpoint.
const DefaultBaseURL = "https://serpapi.com"

// SerpAPI implements Provider against a SerpAPI-compatible search service.
// Flight queries use the google_flights engine, hotel queries google_hotels,
// and destination queries plain google with a travel-guide query.
type SerpAPI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// SerpAPIOption configures the provider.
type SerpAPIOption func(*SerpAPI)

// WithBaseURL overrides the endpoint. Used by tests with httptest servers.
func WithBaseURL(u string) SerpAPIOption {
	return func(s *SerpAPI) {
		if u != "" {
			s.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) SerpAPIOption {
	return func(s *SerpAPI) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewSerpAPI creates the provider with the given API key.
func NewSerpAPI(apiKey string, opts ...SerpAPIOption) *SerpAPI {
	s := &SerpAPI{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch implements Provider.
func (s *SerpAPI) Fetch(ctx context.Context, queryType QueryType, params Params) (*Results, error) {
	values := url.Values{}
	values.Set("api_key", s.apiKey)
	values.Set("hl", "en")

	switch queryType {
	case QueryFlight:
		values.Set("engine", "google_flights")
		values.Set("departure_id", strings.ToUpper(params.Origin))
		values.Set("arrival_id", strings.ToUpper(params.Destination))
		values.Set("outbound_date", params.DepartDate)
		values.Set("return_date", params.ReturnDate)
		if params.Travelers > 0 {
			values.Set("adults", strconv.Itoa(params.Travelers))
		}
	case QueryHotel:
		values.Set("engine", "google_hotels")
		values.Set("q", "hotels in "+params.Destination)
		values.Set("check_in_date", params.DepartDate)
		values.Set("check_out_date", params.ReturnDate)
		if params.Travelers > 0 {
			values.Set("adults", strconv.Itoa(params.Travelers))
		}
	case QueryDestination:
		values.Set("engine", "google")
		values.Set("q", fmt.Sprintf("travel guide %s tourist attractions", params.Destination))
	default:
		return nil, fmt.Errorf("unknown query type: %s", queryType)
	}

	body, err := s.get(ctx, queryType, values)
	if err != nil {
		return nil, err
	}

	switch queryType {
	case QueryFlight:
		return parseFlights(body)
	case QueryHotel:
		return parseHotels(body)
	default:
		return parseDestination(body, params.Destination)
	}
}

// get performs the HTTP call and maps transport and status failures onto
// SearchError.
func (s *SerpAPI) get(ctx context.Context, queryType QueryType, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/search.json?"+values.Encode(), nil)
	if err != nil {
		return nil, &tripflow.SearchError{QueryType: string(queryType), Status: "bad_request", Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &tripflow.SearchError{QueryType: string(queryType), Status: "unavailable", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &tripflow.SearchError{QueryType: string(queryType), Status: "rate_limited"}
	case resp.StatusCode >= 500:
		return nil, &tripflow.SearchError{QueryType: string(queryType), Status: "unavailable"}
	case resp.StatusCode != http.StatusOK:
		return nil, &tripflow.SearchError{
			QueryType: string(queryType),
			Status:    fmt.Sprintf("http_%d", resp.StatusCode),
		}
	}

	// Provider responses are bounded; cap reads at 4 MiB regardless.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &tripflow.SearchError{QueryType: string(queryType), Status: "read_failed", Err: err}
	}
	return body, nil
}

// serpFlight mirrors the subset of the google_flights result schema the
// planner consumes.
type serpFlight struct {
	Airline       string  `json:"airline"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	Duration      string  `json:"duration"`
	Stops         int     `json:"stops"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	BookingLink   string  `json:"link"`
}

// parseFlights extracts flight options from the provider response.
func parseFlights(body []byte) (*Results, error) {
	var payload struct {
		FlightsResults struct {
			Flights []serpFlight `json:"flights"`
		} `json:"flights_results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &tripflow.SearchError{QueryType: string(QueryFlight), Status: "bad_payload", Err: err}
	}

	flights := make([]tripflow.FlightOption, 0, len(payload.FlightsResults.Flights))
	for _, f := range payload.FlightsResults.Flights {
		flights = append(flights, tripflow.FlightOption{
			Airline:       f.Airline,
			DepartureTime: f.DepartureTime,
			ArrivalTime:   f.ArrivalTime,
			Duration:      f.Duration,
			Stops:         f.Stops,
			Price:         f.Price,
			Currency:      f.Currency,
			BookingLink:   f.BookingLink,
		})
	}
	return &Results{Flights: flights}, nil
}

// serpHotel mirrors the subset of the google_hotels result schema the
// planner consumes.
type serpHotel struct {
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Currency  string   `json:"currency"`
	Rating    float64  `json:"rating"`
	Amenities []string `json:"amenities"`
	Address   string   `json:"address"`
	Website   string   `json:"website"`
}

// parseHotels extracts hotel options from the provider response.
func parseHotels(body []byte) (*Results, error) {
	var payload struct {
		HotelsResults struct {
			Hotels []serpHotel `json:"hotels"`
		} `json:"hotels_results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &tripflow.SearchError{QueryType: string(QueryHotel), Status: "bad_payload", Err: err}
	}

	hotels := make([]tripflow.HotelOption, 0, len(payload.HotelsResults.Hotels))
	for _, h := range payload.HotelsResults.Hotels {
		hotels = append(hotels, tripflow.HotelOption{
			Name:      h.Name,
			Price:     h.Price,
			Currency:  h.Currency,
			Rating:    h.Rating,
			Amenities: h.Amenities,
			Address:   h.Address,
			Website:   h.Website,
		})
	}
	return &Results{Hotels: hotels}, nil
}

// parseDestination extracts destination background info from a plain
// google search: the knowledge graph for facts, top organic results for
// attractions and tips.
func parseDestination(body []byte, destination string) (*Results, error) {
	var payload struct {
		KnowledgeGraph struct {
			Description string `json:"description"`
			Timezone    string `json:"timezone"`
			Currency    string `json:"currency"`
		} `json:"knowledge_graph"`
		OrganicResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &tripflow.SearchError{QueryType: string(QueryDestination), Status: "bad_payload", Err: err}
	}

	info := &tripflow.DestinationInfo{
		Name:        destination,
		Description: payload.KnowledgeGraph.Description,
		Timezone:    payload.KnowledgeGraph.Timezone,
		Currency:    payload.KnowledgeGraph.Currency,
	}
	for i, r := range payload.OrganicResults {
		if i >= 5 {
			break
		}
		title := strings.ToLower(r.Title)
		switch {
		case strings.Contains(title, "attraction"):
			info.Attractions = append(info.Attractions, r.Snippet)
		case strings.Contains(title, "tip"), strings.Contains(title, "guide"):
			info.LocalTips = append(info.LocalTips, r.Snippet)
		}
	}
	return &Results{Destination: info}, nil
}
