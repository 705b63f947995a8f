package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pvcse/assemblyai"
	"pvcse/config"
	"pvcse/fixture"
	"pvcse/meetings"
	"pvcse/whisperx"
)

func runServer(cfg *config.Config, svc *meetings.Service) error {
	mux := http.NewServeMux()
	meetings.InstallController(mux, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http listen and serve: %w", err)
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown server: %v", err)
	}
	return nil
}

func initDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	_, err = db.ExecContext(ctx, `
	PRAGMA busy_timeout       = 10000;
	PRAGMA journal_mode       = WAL;
	PRAGMA journal_size_limit = 200000000;
	PRAGMA synchronous        = NORMAL;
	PRAGMA foreign_keys       = ON;
	PRAGMA temp_store         = MEMORY;
	PRAGMA cache_size         = -16000;`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring %s: %w", path, err)
	}

	if err := meetings.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newTranscriber(cfg *config.Config) meetings.Transcriber {
	switch cfg.Provider {
	case config.ProviderMock:
		return fixture.Replay{Path: cfg.FixturePath()}
	case config.ProviderWhisperx:
		return whisperx.WhisperxTranscriber{
			Model:    cfg.WhisperxModel,
			Device:   cfg.WhisperxDevice,
			Language: cfg.Language,
			HFToken:  cfg.HFToken,
		}
	default:
		t := assemblyai.New(cfg.AssemblyKey, cfg.Language)
		t.PollInterval = cfg.PollInterval
		return t
	}
}

// newService validates cfg and opens the transcript cache. The returned
// close func releases the database.
func newService(ctx context.Context, cfg *config.Config) (*meetings.Service, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	db, err := initDB(ctx, cfg.DBPath())
	if err != nil {
		return nil, nil, err
	}
	svc := meetings.NewService(meetings.NewSQLiteRepo(db), newTranscriber(cfg), cfg.Title)
	svc.RecordTo(fixture.Recorder{Path: cfg.FixturePath()})
	return svc, db.Close, nil
}
