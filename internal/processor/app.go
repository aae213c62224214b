package processor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/voicetranslator/internal/backends"
	"github.com/dmitrijs2005/voicetranslator/internal/config"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/pipeline"
	"github.com/dmitrijs2005/voicetranslator/internal/speech/openai"
	"github.com/dmitrijs2005/voicetranslator/internal/voice/xtts"
)

// App runs the processing service. It always talks to the models
// directly; ProcessorURL is ignored here.
type App struct {
	logger     logging.Logger
	closeBlobs func()
	server     *Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, err
	}

	blobs, closeBlobs, err := backends.OpenBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	transcriber := openai.New(openai.Config{
		APIKey:  c.OpenAIAPIKey,
		BaseURL: c.OpenAIBaseURL,
		Model:   c.WhisperModel,
		Timeout: c.TranscribeTimeout,
	})
	synthesizer := xtts.New(c.TTSURL, c.SynthesizeTimeout)

	orchestrator := pipeline.New(nil, nil, transcriber, synthesizer, blobs, logger, pipeline.Config{
		TranscribeTimeout: c.TranscribeTimeout,
		SynthesizeTimeout: c.SynthesizeTimeout,
	})

	srv, err := NewServer(c.ProcessorAddr, logger, transcriber, synthesizer, orchestrator, blobs, c.MaxUploadBytes)
	if err != nil {
		closeBlobs()
		return nil, err
	}

	info := synthesizer.Info(ctx)
	if info.Available {
		logger.Info(ctx, "voice model ready", "model", info.Model, "device", info.Device)
	} else {
		logger.Warn(ctx, "voice model unavailable, /api/process will return placeholder audio")
	}

	return &App{logger: logger, closeBlobs: closeBlobs, server: srv}, nil
}

func (app *App) Run(ctx context.Context) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancel()
		}
	}()
	wg.Wait()

	app.closeBlobs()
	app.logger.Info(ctx, "Processing service stopped")
}
