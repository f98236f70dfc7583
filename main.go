package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"powerlab/internal/cache"
	"powerlab/internal/config"
	"powerlab/internal/fitfile"
	"powerlab/internal/records"
	"powerlab/internal/server"
	"powerlab/internal/service"
	"powerlab/internal/store"
	"powerlab/internal/strava"
	"powerlab/internal/streams"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// A missing .env file is fine; the real environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}

	db, err := store.Open(cfg.DatabaseDSN())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	settings := cache.NewSettings(filepath.Join(cfg.CacheDir, ".cache_config"), cfg.CacheEnabled)
	results := cache.NewResultCache(db, cfg.CacheDir, settings)
	recs := records.NewManager(db, cfg.DataDir)

	ingest := fitfile.NewIngest(cfg.NativeTimeout())
	streamCache := cache.NewStreamCache(cache.Loaders{
		Table: func(ctx context.Context, activityID int64) (*streams.Table, error) {
			act, err := db.GetActivity(activityID)
			if err != nil {
				return nil, err
			}
			table, _, err := ingest.Load(ctx, act.UploadFitURL)
			return table, err
		},
		Session: func(ctx context.Context, activityID int64, url string) (*streams.SessionSummary, error) {
			_, session, err := ingest.Load(ctx, url)
			return session, err
		},
		Athlete: func(ctx context.Context, activityID int64) (*store.Athlete, error) {
			act, err := db.GetActivity(activityID)
			if err != nil {
				return nil, err
			}
			return db.GetAthlete(act.AthleteID)
		},
	}, cache.Options{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go streamCache.Run(ctx)

	svc := service.NewActivityService(service.Deps{
		DB:       db,
		Provider: strava.NewClient(cfg.StravaTimeout()),
		Tokens:   strava.NewDeviceTokens(db, strava.NewOAuthConfig(cfg.StravaClientID, cfg.StravaClientSecret)),
		Streams:  streamCache,
		Results:  results,
		Records:  recs,
		DataDir:  cfg.DataDir,
		Log:      logger,
	})

	s := server.New(server.Options{Service: svc, Cache: results, Log: logger})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: cfg.Addr, Handler: h}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
