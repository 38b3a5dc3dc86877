// Package search wraps the travel-search provider: flight, hotel, and
// destination queries with a per-query-type TTL cache.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/observability"
)

// QueryType selects which search a request performs. Each query type has
// its own cache namespace and TTL.
type QueryType string

// Query types.
const (
	QueryFlight      QueryType = "flight"
	QueryHotel       QueryType = "hotel"
	QueryDestination QueryType = "destination"
)

// Params is the full parameter set of a search query. The cache key covers
// every field, so two queries differing in any parameter never collide.
type Params struct {
	Origin      string
	Destination string
	DepartDate  string
	ReturnDate  string
	Travelers   int
	Budget      float64
}

// Key derives the cache key for a query.
func (p Params) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%.2f",
		p.Origin, p.Destination, p.DepartDate, p.ReturnDate, p.Travelers, p.Budget)
}

// Results is the provider's answer to one query. Exactly one field is
// populated, matching the query type.
type Results struct {
	Flights     []tripflow.FlightOption   `json:"flights,omitempty"`
	Hotels      []tripflow.HotelOption    `json:"hotels,omitempty"`
	Destination *tripflow.DestinationInfo `json:"destination,omitempty"`
}

// Provider performs the actual search call. Implementations must be safe
// for concurrent use; the flight and hotel branches of a parallel search
// query the provider simultaneously.
type Provider interface {
	Fetch(ctx context.Context, queryType QueryType, params Params) (*Results, error)
}

// Client is the travel-search capability handed to the agent steps. It
// consults the cache before the provider and filters results against the
// budget parameter.
type Client struct {
	provider Provider
	cache    *Cache
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
}

// Option configures a Client.
type Option func(*Client)

// WithCache replaces the default cache, letting callers tune per-type TTLs.
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder for cache hit/miss counts.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient creates a search client over the given provider.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		cache:    NewCache(),
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Flights searches for flights matching the parameters.
// Returns a SearchError with status "no_results" when the provider answers
// with an empty list.
func (c *Client) Flights(ctx context.Context, params Params) ([]tripflow.FlightOption, error) {
	res, err := c.lookup(ctx, QueryFlight, params)
	if err != nil {
		return nil, err
	}

	flights := res.Flights
	if params.Budget > 0 {
		flights = filterFlights(flights, params.Budget)
	}
	if len(flights) == 0 {
		return nil, &tripflow.SearchError{QueryType: string(QueryFlight), Status: "no_results"}
	}
	return flights, nil
}

// Hotels searches for hotels matching the parameters.
func (c *Client) Hotels(ctx context.Context, params Params) ([]tripflow.HotelOption, error) {
	res, err := c.lookup(ctx, QueryHotel, params)
	if err != nil {
		return nil, err
	}

	hotels := res.Hotels
	if params.Budget > 0 {
		hotels = filterHotels(hotels, params.Budget)
	}
	if len(hotels) == 0 {
		return nil, &tripflow.SearchError{QueryType: string(QueryHotel), Status: "no_results"}
	}
	return hotels, nil
}

// Destination fetches background information about the destination.
func (c *Client) Destination(ctx context.Context, params Params) (*tripflow.DestinationInfo, error) {
	res, err := c.lookup(ctx, QueryDestination, params)
	if err != nil {
		return nil, err
	}
	if res.Destination == nil {
		return nil, &tripflow.SearchError{QueryType: string(QueryDestination), Status: "no_results"}
	}
	return res.Destination, nil
}

// lookup consults the cache, then the provider. Provider results are cached
// raw; expired entries are evicted lazily on read.
func (c *Client) lookup(ctx context.Context, queryType QueryType, params Params) (*Results, error) {
	key := params.Key()

	if res, ok := c.cache.Get(queryType, key); ok {
		c.metrics.RecordCacheLookup(ctx, string(queryType), true)
		observability.LogCacheLookup(c.logger, string(queryType), true)
		return res, nil
	}
	c.metrics.RecordCacheLookup(ctx, string(queryType), false)
	observability.LogCacheLookup(c.logger, string(queryType), false)

	res, err := c.provider.Fetch(ctx, queryType, params)
	if err != nil {
		return nil, err
	}

	c.cache.Put(queryType, key, res)
	return res, nil
}

// filterFlights keeps flights at or under the budget. Unpriced options are
// dropped when a budget is set.
func filterFlights(flights []tripflow.FlightOption, budget float64) []tripflow.FlightOption {
	kept := make([]tripflow.FlightOption, 0, len(flights))
	for _, f := range flights {
		if f.Price > 0 && f.Price <= budget {
			kept = append(kept, f)
		}
	}
	return kept
}

// filterHotels keeps hotels whose nightly price fits the budget.
func filterHotels(hotels []tripflow.HotelOption, budget float64) []tripflow.HotelOption {
	kept := make([]tripflow.HotelOption, 0, len(hotels))
	for _, h := range hotels {
		if h.Price > 0 && h.Price <= budget {
			kept = append(kept, h)
		}
	}
	return kept
}
