// Package pipeline sequences one audio upload through translation, voice
// cloning and persistence.
//
// Steps run strictly in order and each depends on the previous one:
//
//  1. translate the upload to English (hard failure when unavailable)
//  2. clone the speaker's voice reading the English text (falls back to a
//     silent placeholder, flagged as degraded, when unavailable)
//  3. persist: record inserted as pending together with the owner's history
//     append in one transaction, blob uploaded, record marked completed
package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/dbx"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/dmitrijs2005/voicetranslator/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
	"github.com/google/uuid"
)

// TargetLanguage is the language every upload is translated into.
const TargetLanguage = "en"

// placeholderLength is the duration of the silent stand-in audio.
const placeholderLength = time.Second

// Config holds per-capability call limits. Zero means no limit.
type Config struct {
	TranscribeTimeout time.Duration
	SynthesizeTimeout time.Duration
}

// Outcome is the product of one run before it is tied to an account.
type Outcome struct {
	BlobID         string
	SourceLanguage string
	Text           string
	Degraded       bool
	ProcessingTime time.Duration
	CreatedAt      time.Time
}

// Orchestrator runs uploads through the pipeline. db and repomanager may be
// nil when only Process is used.
type Orchestrator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	transcriber speech.Transcriber
	synthesizer voice.Synthesizer
	blobs       blobstore.Store
	logger      logging.Logger
	cfg         Config
	now         func() time.Time
}

func New(db *sql.DB, m repomanager.RepositoryManager, t speech.Transcriber, s voice.Synthesizer,
	blobs blobstore.Store, logger logging.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{
		db:          db,
		repomanager: m,
		transcriber: t,
		synthesizer: s,
		blobs:       blobs,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run processes audio on behalf of ownerID and returns the completed record.
//
// Errors wrap common.ErrTranscription, common.ErrSynthesis or
// common.ErrPersistence depending on the step that failed.
func (o *Orchestrator) Run(ctx context.Context, ownerID string, audio []byte, filename string) (*models.Result, error) {
	start := o.now()

	tr, out, degraded, err := o.translateAndClone(ctx, audio, filename)
	if err != nil {
		return nil, err
	}

	rec := &models.Result{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		CreatedAt:          o.now().UTC(),
		SourceLanguage:     tr.Language,
		TranslatedText:     tr.Text,
		OutputBlobID:       blobstore.NewID(),
		ProcessingDuration: o.now().Sub(start),
		OriginalFilename:   filename,
		Degraded:           degraded,
		Status:             models.ResultPending,
	}

	// once audio exists the run is finished even if the caller went away
	ctx = context.WithoutCancel(ctx)

	if err := dbx.WithTx(ctx, o.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := o.repomanager.Results(tx).Create(ctx, rec); err != nil {
			return fmt.Errorf("error creating result: %w", err)
		}
		if err := o.repomanager.Users(tx).AppendHistory(ctx, ownerID, rec.ID); err != nil {
			return fmt.Errorf("error appending history: %w", err)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	if err := o.upload(ctx, rec.OutputBlobID, filename, tr, rec.CreatedAt, out); err != nil {
		if serr := o.repomanager.Results(o.db).SetStatus(ctx, rec.ID, models.ResultFailed); serr != nil {
			o.logger.Error(ctx, "marking result failed", "result_id", rec.ID, "error", serr)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	if err := o.repomanager.Results(o.db).SetStatus(ctx, rec.ID, models.ResultCompleted); err != nil {
		o.logger.Error(ctx, "blob stored but result left pending", "result_id", rec.ID, "blob_id", rec.OutputBlobID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	rec.Status = models.ResultCompleted

	o.logger.Info(ctx, "result stored",
		"result_id", rec.ID, "owner_id", ownerID, "source_language", rec.SourceLanguage,
		"degraded", degraded, "duration", rec.ProcessingDuration)
	return rec, nil
}

// Process runs the pipeline without an owner and stores the output blob
// only. It backs the standalone processing service.
func (o *Orchestrator) Process(ctx context.Context, audio []byte, filename string) (*Outcome, error) {
	start := o.now()

	tr, out, degraded, err := o.translateAndClone(ctx, audio, filename)
	if err != nil {
		return nil, err
	}

	res := &Outcome{
		BlobID:         blobstore.NewID(),
		SourceLanguage: tr.Language,
		Text:           tr.Text,
		Degraded:       degraded,
		CreatedAt:      o.now().UTC(),
	}
	res.ProcessingTime = o.now().Sub(start)

	if err := o.upload(ctx, res.BlobID, filename, tr, res.CreatedAt, out); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	o.logger.Info(ctx, "audio processed", "blob_id", res.BlobID, "source_language", res.SourceLanguage, "degraded", degraded)
	return res, nil
}

func (o *Orchestrator) translateAndClone(ctx context.Context, audio []byte, filename string) (*speech.Result, *voice.Audio, bool, error) {
	tr, err := o.translate(ctx, audio, filename)
	if err != nil {
		return nil, nil, false, err
	}
	out, degraded, err := o.synthesize(ctx, audio, filename, tr.Text)
	if err != nil {
		return nil, nil, false, err
	}
	return tr, out, degraded, nil
}

func (o *Orchestrator) translate(ctx context.Context, audio []byte, filename string) (*speech.Result, error) {
	ctx, cancel := withTimeout(ctx, o.cfg.TranscribeTimeout)
	defer cancel()

	tr, err := o.transcriber.Transcribe(ctx, speech.Input{Data: audio, Filename: filename}, speech.Options{Translate: true})
	if err != nil {
		o.logger.Error(ctx, "translation failed", "filename", filename, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrTranscription, err)
	}

	tr.Text = strings.TrimSpace(tr.Text)
	tr.Language = speech.NormalizeLanguage(tr.Language)
	return tr, nil
}

// synthesize returns the cloned audio, or a placeholder and degraded=true
// when the backend is unavailable.
func (o *Orchestrator) synthesize(ctx context.Context, audio []byte, filename, text string) (*voice.Audio, bool, error) {
	req := voice.Request{Reference: audio, ReferenceName: filename, Text: text, Language: TargetLanguage}
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", common.ErrSynthesis, err)
	}

	ctx, cancel := withTimeout(ctx, o.cfg.SynthesizeTimeout)
	defer cancel()

	out, err := o.synthesizer.Clone(ctx, req)
	if err == nil {
		return out, false, nil
	}
	if !errors.Is(err, voice.ErrUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, false, fmt.Errorf("%w: %w", common.ErrSynthesis, err)
	}

	o.logger.Warn(ctx, "voice synthesis unavailable, storing placeholder audio", "filename", filename, "error", err)
	ph, perr := voice.Placeholder(placeholderLength)
	if perr != nil {
		return nil, false, fmt.Errorf("%w: %w", common.ErrSynthesis, perr)
	}
	return ph, true, nil
}

func (o *Orchestrator) upload(ctx context.Context, id, filename string, tr *speech.Result, created time.Time, out *voice.Audio) error {
	ct := out.ContentType
	if ct == "" {
		ct = "audio/wav"
	}
	obj := blobstore.Object{
		ID:          id,
		Filename:    OutputFilename(filename),
		ContentType: ct,
		Size:        int64(len(out.Data)),
		Metadata: blobstore.Metadata{
			SourceLanguage: tr.Language,
			TranslatedText: tr.Text,
			CreatedAt:      created,
		},
	}
	if err := o.blobs.Upload(ctx, obj, bytes.NewReader(out.Data)); err != nil {
		o.logger.Error(ctx, "blob upload failed", "blob_id", id, "error", err)
		return err
	}
	return nil
}

// OutputFilename names the synthesized audio for an upload.
func OutputFilename(upload string) string {
	base := filepath.Base(upload)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "audio"
	}
	return "translated_" + base + ".wav"
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
