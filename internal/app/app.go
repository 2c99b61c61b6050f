package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"docrouter/internal/availability"
	"docrouter/internal/config"
	"docrouter/internal/pipeline"
	"docrouter/internal/provider"
	"docrouter/internal/queue"
	"docrouter/internal/routing"
	"docrouter/internal/store"
)

type App struct {
	Config config.Config
	Store  *store.Store
	Queue  *queue.Queue
	Avail  *availability.Manager
	Engine *routing.Engine
	Runner *pipeline.Runner

	active []config.ProviderConfig
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, st.DB()); err != nil {
		return nil, err
	}

	q, err := queue.New(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	active, invokers := buildProviders(cfg)
	if len(active) == 0 {
		return nil, fmt.Errorf("no providers with credentials configured")
	}

	names := make([]string, len(active))
	for i, p := range active {
		names[i] = p.Name
	}
	avail := availability.NewManager(names, availability.Cooldowns{
		RateLimit: cfg.Cooldowns.RateLimit,
		Quota:     cfg.Cooldowns.Quota,
		Auth:      cfg.Cooldowns.Auth,
		Transient: cfg.Cooldowns.Transient,
	})
	engine := routing.NewEngine(active, avail)
	runner := pipeline.NewRunner(engine, avail, invokers, pipeline.Options{
		ChunkMaxChars:  cfg.Pipeline.ChunkMaxChars,
		InterTaskDelay: cfg.Pipeline.InterTaskDelay,
		CallTimeout:    cfg.Pipeline.CallTimeout,
		Retry: pipeline.RetryPolicy{
			MaxAttempts:   cfg.Pipeline.MaxRetries,
			RateLimitWait: cfg.RetryWaits.RateLimit,
			TransientWait: cfg.RetryWaits.Transient,
		},
	})

	return &App{
		Config: cfg,
		Store:  st,
		Queue:  q,
		Avail:  avail,
		Engine: engine,
		Runner: runner,
		active: active,
	}, nil
}

// buildProviders resolves configured providers into invokers. Providers with
// no credential are skipped, except in dev mode where they degrade to the
// deterministic noop backend so the system runs without any keys.
func buildProviders(cfg config.Config) ([]config.ProviderConfig, map[string]provider.Invoker) {
	var active []config.ProviderConfig
	invokers := make(map[string]provider.Invoker)
	for _, p := range cfg.Providers {
		key := p.Key()
		if key == "" && p.Type != "noop" {
			if !cfg.Dev.Mode {
				log.Printf("provider %s: no credential, skipping", p.Name)
				continue
			}
			log.Printf("provider %s: no credential, using noop (dev mode)", p.Name)
			active = append(active, p)
			invokers[p.Name] = provider.NewNoop(p.Name)
			continue
		}
		switch p.Type {
		case "gemini":
			invokers[p.Name] = provider.NewGemini(p.Name, p.BaseURL, p.Model, key)
		case "openai_compat":
			invokers[p.Name] = provider.NewOpenAICompat(p.Name, p.BaseURL, p.Model, key)
		case "noop":
			invokers[p.Name] = provider.NewNoop(p.Name)
		default:
			log.Printf("provider %s: unknown type %q, skipping", p.Name, p.Type)
			continue
		}
		active = append(active, p)
	}
	return active, invokers
}

func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	return err
}

func (a *App) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.Store.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := a.Queue.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("POST /v1/documents", a.handleSubmitDocument)
	mux.HandleFunc("GET /v1/summaries/{id}", a.handleGetSummary)
	mux.HandleFunc("GET /v1/providers", a.handleProviderStatus)
	mux.HandleFunc("POST /v1/providers/reset", a.handleProviderReset)

	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}

// ProcessJob loads one queued run, executes the pipeline and persists the
// result. A failed job never returns the worker loop an error it cannot
// continue from; only load/persist failures propagate.
func (a *App) ProcessJob(ctx context.Context, runID string) error {
	docID, err := a.Store.GetRunDocumentID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	doc, err := a.Store.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}
	if err := a.Store.MarkRunRunning(ctx, runID); err != nil {
		return err
	}

	res, err := a.Runner.Summarize(ctx, doc.Content)
	if err != nil {
		_ = a.Store.MarkRunFailed(ctx, runID, err.Error())
		return fmt.Errorf("run %s: %w", runID, err)
	}
	if err := a.Store.SaveResult(ctx, runID, res); err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	log.Printf("run %s done: %d chunks, degraded=%v, %s", runID, len(res.Partials), res.Degraded, res.Elapsed)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
