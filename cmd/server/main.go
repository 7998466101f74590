// Command server wires the job pipeline's collaborators together and
// exposes them over HTTP, following the teacher's cmd/api/main.go wiring
// order: config -> collaborators -> orchestrator -> HTTP server ->
// graceful shutdown.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bobarin/scenecast/internal/api"
	"github.com/bobarin/scenecast/internal/breaker"
	"github.com/bobarin/scenecast/internal/cache"
	"github.com/bobarin/scenecast/internal/compose"
	"github.com/bobarin/scenecast/internal/config"
	"github.com/bobarin/scenecast/internal/llm"
	"github.com/bobarin/scenecast/internal/orchestrator"
	"github.com/bobarin/scenecast/internal/resource"
	"github.com/bobarin/scenecast/internal/retry"
	"github.com/bobarin/scenecast/internal/store"
	"github.com/bobarin/scenecast/internal/tts"
	"github.com/bobarin/scenecast/internal/visual"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var redisBackend cache.Backend
	if cfg.RedisURL != "" {
		rb, err := cache.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			log.Printf("cache: redis backend unavailable, continuing in-process only: %v", err)
		} else {
			redisBackend = rb
		}
	}

	assetCache, err := cache.New(cfg.CacheLRUSize, cfg.CacheTTL, redisBackend)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}

	breakers := breaker.NewManager(breaker.Settings{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		HalfOpenMax:      cfg.BreakerHalfOpenMax,
	})

	governor := resource.New(
		cfg.MaxConcurrentJobs, cfg.MaxConcurrentTTS, cfg.MaxConcurrentVisual,
		resource.Ceilings{CPUPercent: cfg.CPUCeilingPercent, MemPercent: cfg.MemCeilingPercent},
		func(ctx context.Context) { assetCache.EvictUntil(cfg.CacheLRUSize / 2) },
	)

	retryPolicy := retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}

	ctx := context.Background()
	slideRenderer, err := visual.NewSlideRenderer(ctx, cfg.GeminiAPIKey, "")
	if err != nil {
		log.Fatalf("visual: slide renderer: %v", err)
	}

	router := visual.New(
		filepath.Join(cfg.DataDir, "assets"),
		slideRenderer,
		visual.NewDiagramRenderer(cfg.DiagramBaseURL),
		visual.NewChartRenderer(cfg.ChartBaseURL),
		visual.NewFormulaRenderer(cfg.FormulaBaseURL),
		visual.NewCodeRenderer(cfg.CodeBaseURL),
		visual.NewPlaceholderRenderer(),
		assetCache,
		breakers,
		governor,
		retryPolicy,
	)

	composer, err := compose.New(cfg.FFmpegPath, cfg.FFprobePath, filepath.Join(cfg.DataDir, "compose-tmp"))
	if err != nil {
		log.Fatalf("compose: %v", err)
	}

	llmClient := llm.New(cfg.OpenAIKey, cfg.LLMModel)
	ttsClient := tts.New(cfg.TTSBaseURL, cfg.TTSAPIKey)

	jobStore, err := store.New(filepath.Join(cfg.DataDir, "job_store.json"))
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	orch := orchestrator.New(jobStore, governor, llmClient, ttsClient, router, composer, assetCache, breakers, retryPolicy, orchestrator.Config{
		Workers:      cfg.MaxConcurrentJobs,
		OutputDir:    filepath.Join(cfg.DataDir, "output"),
		DefaultVoice: "default",
	})

	handler := api.NewHandler(orch, filepath.Join(cfg.DataDir, "uploads"), cfg.MaxUploadBytes)
	mux := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CORSAllowedOrigins: cfg.CORSOrigins,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	go orch.Run(workerCtx)

	snapshotStop := make(chan struct{})
	go jobStore.RunSnapshotLoop(60*time.Second, snapshotStop)

	go runRetentionSweep(workerCtx, jobStore, cfg.JobMaxAge)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		log.Printf("server: listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("server: shutting down")
	workerCancel()
	close(snapshotStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: shutdown error: %v", err)
	}
}

func runRetentionSweep(ctx context.Context, s *store.Store, maxAge time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.CleanupExpired(maxAge)
			if removed > 0 {
				log.Printf("store: retention sweep removed %d job(s)", removed)
			}
		}
	}
}
