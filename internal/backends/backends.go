// Package backends builds the external dependencies named by a Config:
// the database handle, the blob store and the speech and voice
// capabilities. The web tier, the processing service and the CLI share it.
package backends

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	natsstore "github.com/dmitrijs2005/voicetranslator/internal/blobstore/nats"
	s3store "github.com/dmitrijs2005/voicetranslator/internal/blobstore/s3"
	"github.com/dmitrijs2005/voicetranslator/internal/config"
	"github.com/dmitrijs2005/voicetranslator/internal/mlclient"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/dmitrijs2005/voicetranslator/internal/speech/openai"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
	"github.com/dmitrijs2005/voicetranslator/internal/voice/xtts"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenDB opens and pings the PostgreSQL database.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// OpenBlobStore connects the configured blob backend. The returned func
// releases its connection.
func OpenBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, func(), error) {
	switch cfg.BlobBackend {
	case config.BlobBackendNATS:
		nc, store, err := natsstore.Connect(cfg.NATSURL, cfg.NATSBucket)
		if err != nil {
			return nil, nil, err
		}
		return store, nc.Close, nil

	case config.BlobBackendS3:
		store, err := s3store.New(ctx, s3store.Config{
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// Capabilities returns the transcription and voice backends. With a
// processor URL both go through the remote processing service.
func Capabilities(cfg *config.Config) (speech.Transcriber, voice.Synthesizer) {
	if cfg.ProcessorURL != "" {
		c := mlclient.New(cfg.ProcessorURL, cfg.TranscribeTimeout+cfg.SynthesizeTimeout)
		return c, c
	}

	t := openai.New(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.WhisperModel,
		Timeout: cfg.TranscribeTimeout,
	})
	s := xtts.New(cfg.TTSURL, cfg.SynthesizeTimeout)
	return t, s
}
