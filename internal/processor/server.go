// Package processor is the standalone processing service. It exposes the
// transcription and voice-cloning capabilities and the full pipeline as a
// small JSON/multipart API consumed by the web tier.
package processor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/pipeline"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
	"github.com/gin-gonic/gin"
)

// Pipeline runs an upload end to end without an owner.
type Pipeline interface {
	Process(ctx context.Context, audio []byte, filename string) (*pipeline.Outcome, error)
}

type Server struct {
	address        string
	transcriber    speech.Transcriber
	synthesizer    voice.Synthesizer
	pipeline       Pipeline
	blobs          blobstore.Store
	logger         logging.Logger
	maxUploadBytes int64
	engine         *gin.Engine
}

func NewServer(address string, l logging.Logger, t speech.Transcriber, s voice.Synthesizer,
	p Pipeline, blobs blobstore.Store, maxUploadBytes int64) (*Server, error) {
	srv := &Server{
		address:        address,
		transcriber:    t,
		synthesizer:    s,
		pipeline:       p,
		blobs:          blobs,
		logger:         l.With("module", "processor"),
		maxUploadBytes: maxUploadBytes,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	engine.MaxMultipartMemory = maxUploadBytes
	engine.Use(gin.Recovery(), srv.requestLogger())
	srv.engine = engine
	srv.routes()

	return srv, nil
}

func (s *Server) routes() {
	g := s.engine.Group("/api")
	g.POST("/transcribe", s.transcribe)
	g.POST("/translate", s.translate)
	g.POST("/voice-clone", s.voiceClone)
	g.POST("/process", s.process)
	g.GET("/download/:id", s.download)
	g.GET("/health", s.health)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping processing service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "processing service shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting processing service", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
