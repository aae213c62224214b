// Package server initializes and runs the web tier: it opens the database
// and the blob store, runs migrations, wires the services and the
// processing pipeline, and serves HTTP until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/voicetranslator/internal/backends"
	"github.com/dmitrijs2005/voicetranslator/internal/config"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/pipeline"
	"github.com/dmitrijs2005/voicetranslator/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voicetranslator/internal/server/services"
	"github.com/dmitrijs2005/voicetranslator/internal/server/web"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	closeBlobs func()
	web        *web.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := backends.OpenDB(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, closeBlobs, err := backends.OpenBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	transcriber, synthesizer := backends.Capabilities(c)
	orchestrator := pipeline.New(db, m, transcriber, synthesizer, blobs, logger, pipeline.Config{
		TranscribeTimeout: c.TranscribeTimeout,
		SynthesizeTimeout: c.SynthesizeTimeout,
	})

	accounts := services.NewAccountService(db, m, c)
	results := services.NewResultService(db, m, blobs)

	ws, err := web.NewServer(c.HTTPAddr, logger, accounts, results, orchestrator, c.MaxUploadBytes)
	if err != nil {
		closeBlobs()
		_ = db.Close()
		return nil, err
	}

	if !synthesizer.Available(ctx) {
		logger.Warn(ctx, "voice synthesis backend unavailable, results will carry placeholder audio")
	}

	return &App{config: c, logger: logger, db: db, closeBlobs: closeBlobs, web: ws}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startWebServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.web.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startWebServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.closeBlobs()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
