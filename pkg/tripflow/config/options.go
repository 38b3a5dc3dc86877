package config

import (
	"fmt"
	"os"
	"time"
)

// Environment variables holding secrets. Secrets never live in config files.
const (
	EnvOpenAIKey  = "OPENAI_API_KEY"
	EnvSerpAPIKey = "SERPAPI_API_KEY"
)

// Inference provider names accepted in the config file.
const (
	ProviderRemote = "remote-api"
	ProviderLocal  = "local-model"
)

// Options is the validated application configuration.
type Options struct {
	// HTTPAddr is the listen address for the chat API.
	HTTPAddr string

	// SessionDBPath is the SQLite file for session persistence.
	// Empty selects the in-memory store.
	SessionDBPath string

	// Provider selects the inference backend: ProviderRemote or ProviderLocal.
	Provider string
	// ModelName is the model identifier sent to the provider.
	ModelName string
	// EndpointURL overrides the provider base URL. Required for ProviderLocal.
	EndpointURL string
	// OpenAIKey is read from OPENAI_API_KEY.
	OpenAIKey string

	// SerpAPIKey is read from SERPAPI_API_KEY.
	SerpAPIKey string

	// ApprovalEnabled controls human-approval checkpoints.
	ApprovalEnabled bool
	// OscillationLimit is how many identical failures may recur before a
	// run terminates.
	OscillationLimit int
	// MaxSteps bounds step executions per engine invocation.
	MaxSteps int

	// Per-query-type cache lifetimes.
	FlightTTL      time.Duration
	HotelTTL       time.Duration
	DestinationTTL time.Duration

	// TracingEnabled turns on OpenTelemetry spans.
	TracingEnabled bool
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Defaults returns the configuration used when no file is given.
func Defaults() Options {
	return Options{
		HTTPAddr:         ":8080",
		Provider:         ProviderRemote,
		ModelName:        "gpt-4o",
		ApprovalEnabled:  true,
		OscillationLimit: 3,
		MaxSteps:         50,
		FlightTTL:        time.Hour,
		HotelTTL:         time.Hour,
		DestinationTTL:   time.Hour,
		LogLevel:         "info",
	}
}

// Load builds Options from an optional config file plus the environment.
// An empty path yields Defaults with env secrets applied.
func Load(path string) (Options, error) {
	opts := Defaults()

	if path != "" {
		cfg, err := FromFile(path)
		if err != nil {
			return Options{}, err
		}
		opts = fromConfig(cfg, opts)
	}

	opts.OpenAIKey = os.Getenv(EnvOpenAIKey)
	opts.SerpAPIKey = os.Getenv(EnvSerpAPIKey)

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// fromConfig overlays file values on top of the given defaults.
func fromConfig(cfg Config, defaults Options) Options {
	opts := defaults

	server := cfg.Section("server")
	opts.HTTPAddr = server.String("addr", opts.HTTPAddr)

	storage := cfg.Section("storage")
	opts.SessionDBPath = storage.String("session_db", opts.SessionDBPath)

	model := cfg.Section("model")
	opts.Provider = model.String("provider", opts.Provider)
	opts.ModelName = model.String("model_name", opts.ModelName)
	opts.EndpointURL = model.String("endpoint_url", opts.EndpointURL)

	workflow := cfg.Section("workflow")
	opts.ApprovalEnabled = workflow.Bool("approval_enabled", opts.ApprovalEnabled)
	opts.OscillationLimit = workflow.Int("oscillation_limit", opts.OscillationLimit)
	opts.MaxSteps = workflow.Int("max_steps", opts.MaxSteps)

	cache := cfg.Section("cache")
	opts.FlightTTL = cache.Duration("flight_ttl", opts.FlightTTL)
	opts.HotelTTL = cache.Duration("hotel_ttl", opts.HotelTTL)
	opts.DestinationTTL = cache.Duration("destination_ttl", opts.DestinationTTL)

	observability := cfg.Section("observability")
	opts.TracingEnabled = observability.Bool("tracing", opts.TracingEnabled)
	opts.LogLevel = observability.String("log_level", opts.LogLevel)

	return opts
}

// Validate checks the options for consistency. Secrets are checked here so a
// misconfigured deployment fails at startup, not mid-conversation.
func (o Options) Validate() error {
	switch o.Provider {
	case ProviderRemote, ProviderLocal:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", o.Provider, ProviderRemote, ProviderLocal)
	}

	if o.Provider == ProviderRemote && o.OpenAIKey == "" {
		return fmt.Errorf("provider %s requires %s", ProviderRemote, EnvOpenAIKey)
	}
	if o.Provider == ProviderLocal && o.EndpointURL == "" {
		return fmt.Errorf("provider %s requires model.endpoint_url", ProviderLocal)
	}
	if o.SerpAPIKey == "" {
		return fmt.Errorf("%s is required for flight and hotel search", EnvSerpAPIKey)
	}

	if o.OscillationLimit <= 0 {
		return fmt.Errorf("workflow.oscillation_limit must be positive, got %d", o.OscillationLimit)
	}
	if o.MaxSteps <= 0 {
		return fmt.Errorf("workflow.max_steps must be positive, got %d", o.MaxSteps)
	}
	for name, ttl := range map[string]time.Duration{
		"cache.flight_ttl":      o.FlightTTL,
		"cache.hotel_ttl":       o.HotelTTL,
		"cache.destination_ttl": o.DestinationTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, ttl)
		}
	}

	return nil
}
