package benchmarks

import (
	"testing"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/search"
)

func benchParams(i int) search.Params {
	return search.Params{
		Origin:      "SFO",
		Destination: "Paris",
		DepartDate:  "2026-09-10",
		ReturnDate:  "2026-09-13",
		Travelers:   1 + i%4,
	}
}

func benchResults() *search.Results {
	return &search.Results{Flights: []tripflow.FlightOption{
		{Airline: "United", DepartureTime: "08:15", ArrivalTime: "16:40", Price: 640, Currency: "USD"},
		{Airline: "Delta", DepartureTime: "11:30", ArrivalTime: "20:05", Price: 580, Currency: "USD", Stops: 1},
	}}
}

// BenchmarkParamsKey measures cache key derivation.
func BenchmarkParamsKey(b *testing.B) {
	params := benchParams(0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = params.Key()
	}
}

// BenchmarkCache_Put measures storing a result set.
func BenchmarkCache_Put(b *testing.B) {
	cache := search.NewCache()
	key := benchParams(0).Key()
	results := benchResults()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Put(search.QueryFlight, key, results)
	}
}

// BenchmarkCache_Get_Hit measures a warm lookup.
func BenchmarkCache_Get_Hit(b *testing.B) {
	cache := search.NewCache()
	key := benchParams(0).Key()
	cache.Put(search.QueryFlight, key, benchResults())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cache.Get(search.QueryFlight, key)
	}
}

// BenchmarkCache_Get_Miss measures a cold lookup.
func BenchmarkCache_Get_Miss(b *testing.B) {
	cache := search.NewCache()
	key := benchParams(0).Key()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cache.Get(search.QueryFlight, key)
	}
}

// BenchmarkCache_MixedKeys measures put/get over a rotating key set, closer
// to a server handling several sessions.
func BenchmarkCache_MixedKeys(b *testing.B) {
	cache := search.NewCache()
	results := benchResults()
	keys := make([]string, 8)
	for i := range keys {
		keys[i] = benchParams(i).Key()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[i%len(keys)]
		if _, ok := cache.Get(search.QueryFlight, key); !ok {
			cache.Put(search.QueryFlight, key, results)
		}
	}
}
