// Package cli implements the administrative and offline command line:
// schema migrations, account registration, one-shot processing of a local
// audio file and history listing.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/voicetranslator/internal/backends"
	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/config"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/pipeline"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/dmitrijs2005/voicetranslator/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voicetranslator/internal/server/services"
)

type Accounts interface {
	Register(ctx context.Context, username, password, confirm string) (*models.Account, error)
	Authenticate(ctx context.Context, username, password string) (*models.Account, error)
}

type Results interface {
	List(ctx context.Context, requesterID string) ([]*models.Result, error)
}

type Pipeline interface {
	Run(ctx context.Context, ownerID string, audio []byte, filename string) (*models.Result, error)
	Process(ctx context.Context, audio []byte, filename string) (*pipeline.Outcome, error)
}

// need selects which backends a command opens.
type need uint8

const (
	needDB need = 1 << iota
	needPipeline
)

// Env is the set of services available to a command. Fields for backends
// that were not requested stay nil.
type Env struct {
	Accounts Accounts
	Results  Results
	Pipeline Pipeline
	Blobs    blobstore.Store
	Migrate  func(ctx context.Context) error
	Close    func()
}

type opener func(ctx context.Context, cfg *config.Config, n need, logger logging.Logger) (*Env, error)

// Runner holds the I/O and backend wiring shared by every command.
type Runner struct {
	in     *bufio.Reader
	out    io.Writer
	logOut io.Writer
	open   opener
}

func NewRunner(in io.Reader, out, logOut io.Writer) *Runner {
	return &Runner{
		in:     bufio.NewReader(in),
		out:    out,
		logOut: logOut,
		open:   openEnv,
	}
}

// env loads configuration from the optional --config file and opens the
// requested backends.
func (r *Runner) env(ctx context.Context, path string, n need) (*Env, error) {
	var args []string
	if path != "" {
		args = append(args, "-c", path)
	}
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(r.logOut, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return r.open(ctx, cfg, n, logger)
}

func openEnv(ctx context.Context, cfg *config.Config, n need, logger logging.Logger) (*Env, error) {
	var closers []func()
	env := &Env{}
	env.Close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	m := repomanager.NewPostgresRepositoryManager()

	var db *sql.DB
	if n&needDB != 0 {
		var err error
		db, err = backends.OpenDB(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("database init error: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
	}

	if n&needPipeline != 0 {
		blobs, closeBlobs, err := backends.OpenBlobStore(ctx, cfg)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("blob store init error: %w", err)
		}
		closers = append(closers, closeBlobs)

		transcriber, synthesizer := backends.Capabilities(cfg)
		if !synthesizer.Available(ctx) {
			logger.Warn(ctx, "voice model unavailable, output will be placeholder audio")
		}

		env.Blobs = blobs
		env.Pipeline = pipeline.New(db, m, transcriber, synthesizer, blobs, logger, pipeline.Config{
			TranscribeTimeout: cfg.TranscribeTimeout,
			SynthesizeTimeout: cfg.SynthesizeTimeout,
		})
	}

	if db != nil {
		env.Accounts = services.NewAccountService(db, m, cfg)
		env.Results = services.NewResultService(db, m, env.Blobs)
		env.Migrate = func(ctx context.Context) error {
			return m.RunMigrations(ctx, db)
		}
	}

	return env, nil
}

// Run executes the command line in args (usually os.Args).
func (r *Runner) Run(ctx context.Context, args []string) error {
	return r.Command().Run(ctx, args)
}

// Main is the entry point used by cmd/cli.
func Main(ctx context.Context) int {
	r := NewRunner(os.Stdin, os.Stdout, os.Stderr)
	if err := r.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
