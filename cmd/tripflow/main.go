// Command tripflow runs the travel planning chat service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/randalmurphal/tripflow/internal/httpapi"
	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/agent"
	"github.com/randalmurphal/tripflow/pkg/tripflow/config"
	"github.com/randalmurphal/tripflow/pkg/tripflow/llm"
	"github.com/randalmurphal/tripflow/pkg/tripflow/observability"
	"github.com/randalmurphal/tripflow/pkg/tripflow/search"
	"github.com/randalmurphal/tripflow/pkg/tripflow/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tripflow:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	flag.Parse()

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	opts, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(opts.LogLevel)
	slog.SetDefault(logger)

	store, err := newStore(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	inference := newInference(opts)

	cache := search.NewCache(
		search.WithTTL(search.QueryFlight, opts.FlightTTL),
		search.WithTTL(search.QueryHotel, opts.HotelTTL),
		search.WithTTL(search.QueryDestination, opts.DestinationTTL),
	)
	searchClient := search.NewClient(
		search.NewSerpAPI(opts.SerpAPIKey),
		search.WithCache(cache),
		search.WithLogger(logger),
		search.WithMetricsRecorder(observability.NewMetricsRecorder()),
	)

	engineOpts := []tripflow.EngineOption{
		tripflow.WithEngineLogger(logger),
		tripflow.WithMetrics(observability.NewMetricsRecorder()),
		tripflow.WithOscillationLimit(opts.OscillationLimit),
		tripflow.WithMaxSteps(opts.MaxSteps),
	}
	if opts.TracingEnabled {
		engineOpts = append(engineOpts, tripflow.WithTracing())
	}
	if !opts.ApprovalEnabled {
		engineOpts = append(engineOpts, tripflow.WithApprovalDisabled())
	}

	engine := tripflow.NewEngine(
		agent.NewSupervisor(inference),
		[]tripflow.Step{
			agent.NewFlight(searchClient),
			agent.NewHotel(searchClient),
			agent.NewPlanner(inference, searchClient),
		},
		engineOpts...,
	)

	manager := httpapi.NewManager(engine, store, logger)
	server := &http.Server{
		Addr:              opts.HTTPAddr,
		Handler:           httpapi.NewHandler(manager, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.HTTPAddr, "provider", opts.Provider, "model", opts.ModelName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newStore(opts config.Options) (session.Store, error) {
	if opts.SessionDBPath == "" {
		return session.NewMemoryStore(), nil
	}
	return session.NewSQLiteStore(opts.SessionDBPath)
}

func newInference(opts config.Options) llm.Client {
	llmOpts := []llm.OpenAIOption{llm.WithModel(opts.ModelName)}
	if opts.EndpointURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(opts.EndpointURL))
	}

	apiKey := opts.OpenAIKey
	if opts.Provider == config.ProviderLocal {
		llmOpts = append(llmOpts, llm.WithProvider(llm.ProviderLocal))
		if apiKey == "" {
			// Local OpenAI-compatible servers ignore the key but the SDK
			// requires one.
			apiKey = "local"
		}
	}
	return llm.NewOpenAI(apiKey, llmOpts...)
}
