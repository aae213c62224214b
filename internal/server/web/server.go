// Package web is the browser-facing tier: account pages, uploads, results,
// history and owner-scoped audio downloads, served by gin with embedded
// html templates and a signed session cookie.
package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/server/auth"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/gin-gonic/gin"
)

// Accounts is the account service used by the auth pages.
type Accounts interface {
	Register(ctx context.Context, username, password, confirm string) (*models.Account, error)
	Authenticate(ctx context.Context, username, password string) (*models.Account, error)
	IssueSession(account *models.Account) (string, error)
	ResolveSession(ctx context.Context, token string) (*auth.Session, error)
	SessionTTL() time.Duration
}

// Results serves owner-scoped reads.
type Results interface {
	Get(ctx context.Context, id, requesterID string) (*models.Result, error)
	List(ctx context.Context, requesterID string) ([]*models.Result, error)
	OpenAudio(ctx context.Context, blobID, requesterID string) (*blobstore.Object, io.ReadCloser, error)
}

// Runner processes one upload for an owner.
type Runner interface {
	Run(ctx context.Context, ownerID string, audio []byte, filename string) (*models.Result, error)
}

type Server struct {
	address        string
	accounts       Accounts
	results        Results
	runner         Runner
	logger         logging.Logger
	maxUploadBytes int64
	engine         *gin.Engine
}

func NewServer(address string, l logging.Logger, a Accounts, r Results, run Runner, maxUploadBytes int64) (*Server, error) {
	s := &Server{
		address:        address,
		accounts:       a,
		results:        r,
		runner:         run,
		logger:         l.With("module", "web_server"),
		maxUploadBytes: maxUploadBytes,
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	engine.SetHTMLTemplate(tmpl)
	engine.Use(gin.Recovery(), requestLogger(s.logger), s.sessionMiddleware())
	s.engine = engine
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/", s.index)

	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)
	r.GET("/register", s.registerPage)
	r.POST("/register", s.register)

	authed := r.Group("/", requireLogin())
	authed.GET("/logout", s.logout)
	authed.GET("/dashboard", s.dashboard)
	authed.GET("/upload", s.uploadPage)
	authed.POST("/upload", s.upload)
	authed.GET("/result/:id", s.result)
	authed.GET("/history", s.history)
	authed.GET("/audio/:id", s.audio)
}

// Handler exposes the router, mainly for tests.
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
		s.logger.Info(ctx, "Stopping web server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "web server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting web server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
