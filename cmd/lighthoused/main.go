package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	lighthouse "github.com/carlosmsal22/lighthouse-validator"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to yaml config (default: $LIGHTHOUSE_CONFIG)")
	flag.Parse()

	cfg, err := lighthouse.LoadConfig(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := lighthouse.NewLogger(cfg.LogLevel)

	store, err := lighthouse.OpenStore(cfg.Database.Path)
	if err != nil {
		log.Error("open store", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	scorer, err := lighthouse.NewClipScorer(lighthouse.ClipScorerOptions{
		BaseURL: cfg.Clip.BaseURL,
		APIKey:  cfg.Clip.APIKey,
		Model:   cfg.Clip.Model,
		Prompts: cfg.Pipeline.Prompts,
		Timeout: cfg.Clip.Timeout.Duration,
	})
	if err != nil {
		log.Error("clip scorer", "error", err)
		os.Exit(1)
	}

	pipeline, err := lighthouse.NewPipeline(lighthouse.PipelineOptions{
		Fetcher: lighthouse.NewFetcher(lighthouse.FetcherOptions{
			UserAgent: cfg.Pipeline.UserAgent,
			Timeout:   cfg.Pipeline.FetchTimeout.Duration,
		}),
		Inspector: lighthouse.NewInspector(cfg.Pipeline.BlurThreshold),
		Scorer:    scorer,
		Geo: lighthouse.NewGeoEnricher(lighthouse.GeoEnricherOptions{
			Endpoint: cfg.Geo.Endpoint,
			Timeout:  cfg.Geo.Timeout.Duration,
			Logger:   log,
		}),
		Store:         store,
		MinConfidence: cfg.Pipeline.MinConfidence,
		Logger:        log,
	})
	if err != nil {
		log.Error("pipeline", "error", err)
		os.Exit(1)
	}

	server := lighthouse.NewServer(lighthouse.ServerOptions{
		Pipeline:          pipeline,
		Store:             store,
		DashboardPassword: cfg.Dashboard.Password,
		Logger:            log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
