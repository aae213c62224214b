package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/filex"
	"github.com/dmitrijs2005/voicetranslator/internal/pipeline"
	"github.com/dmitrijs2005/voicetranslator/internal/processor/api"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/urfave/cli/v3"
)

// Migrate applies pending schema migrations.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	env, err := r.env(ctx, cmd.String("config"), needDB)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Migrate(ctx); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	fmt.Fprintln(r.out, "Migrations applied")
	return nil
}

// Register creates an account, prompting for anything not given as a flag.
func (r *Runner) Register(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("username")
	if username == "" {
		var err error
		if username, err = GetSimpleText(r.in, "Username", r.out); err != nil {
			return err
		}
	}
	password, err := GetPassword("Password", r.out)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Confirm password", r.out)
	if err != nil {
		return err
	}

	env, err := r.env(ctx, cmd.String("config"), needDB)
	if err != nil {
		return err
	}
	defer env.Close()

	account, err := env.Accounts.Register(ctx, username, password, confirm)
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		return errors.New("username already exists, choose a different one")
	case errors.Is(err, common.ErrPasswordMismatch):
		return errors.New("passwords do not match")
	case errors.Is(err, common.ErrValidation):
		return errors.New("please provide both a username and password")
	case err != nil:
		return err
	}

	fmt.Fprintf(r.out, "Account %s created\n", account.Username)
	return nil
}

// processOutput is what `process` reports.
type processOutput struct {
	api.ProcessResult
	ResultID   string `json:"result_id,omitempty"`
	OutputPath string `json:"output_path"`
}

// Process runs the pipeline over a local file and writes the synthesized
// audio into the output directory. With --user the run is recorded in that
// account's history.
func (r *Runner) Process(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return errors.New("audio file path is required")
	}
	filename := filepath.Base(path)
	if !common.IsAllowedAudioFile(filename) {
		return fmt.Errorf("only the following file formats are accepted: %s",
			strings.Join(common.AllowedAudioExtensions, ", "))
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	username := cmd.String("user")
	n := needPipeline
	if username != "" {
		n |= needDB
	}

	env, err := r.env(ctx, cmd.String("config"), n)
	if err != nil {
		return err
	}
	defer env.Close()

	var out processOutput
	if username != "" {
		account, err := r.login(ctx, env, username)
		if err != nil {
			return err
		}
		rec, err := env.Pipeline.Run(ctx, account.ID, audio, filename)
		if err != nil {
			return err
		}
		out.ResultID = rec.ID
		out.ProcessResult = api.ProcessResult{
			Timestamp:      rec.CreatedAt.Format(time.RFC3339Nano),
			SourceLanguage: rec.SourceLanguage,
			EnglishText:    rec.TranslatedText,
			OutputFileID:   rec.OutputBlobID,
			ProcessingTime: rec.ProcessingDuration.Seconds(),
			Degraded:       rec.Degraded,
		}
	} else {
		res, err := env.Pipeline.Process(ctx, audio, filename)
		if err != nil {
			return err
		}
		out.ProcessResult = api.ProcessResult{
			Timestamp:      res.CreatedAt.Format(time.RFC3339Nano),
			SourceLanguage: res.SourceLanguage,
			EnglishText:    res.Text,
			OutputFileID:   res.BlobID,
			ProcessingTime: res.ProcessingTime.Seconds(),
			Degraded:       res.Degraded,
		}
	}

	dir, err := filex.EnsureSubdDir(cmd.String("out"))
	if err != nil {
		return err
	}
	out.OutputPath = filepath.Join(dir, pipeline.OutputFilename(filename))

	_, body, err := env.Blobs.Download(ctx, out.OutputFileID)
	if err != nil {
		return fmt.Errorf("error fetching output audio: %w", err)
	}
	defer body.Close()
	if _, err := filex.WriteFile(out.OutputPath, body); err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(r.out, "Source language: %s\n", out.SourceLanguage)
	fmt.Fprintf(r.out, "English text:    %s\n", out.EnglishText)
	fmt.Fprintf(r.out, "Processing time: %.2fs\n", out.ProcessingTime)
	if out.Degraded {
		fmt.Fprintln(r.out, "Voice model unavailable: saved placeholder audio")
	}
	fmt.Fprintf(r.out, "Saved to:        %s\n", out.OutputPath)
	return nil
}

// History prints the account's completed results in history order.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	env, err := r.env(ctx, cmd.String("config"), needDB)
	if err != nil {
		return err
	}
	defer env.Close()

	account, err := r.login(ctx, env, cmd.String("user"))
	if err != nil {
		return err
	}

	results, err := env.Results.List(ctx, account.ID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(r.out, "No translations yet")
		return nil
	}

	return writeHistory(r.out, results)
}

func (r *Runner) login(ctx context.Context, env *Env, username string) (*models.Account, error) {
	password, err := GetPassword("Password for "+username, r.out)
	if err != nil {
		return nil, err
	}
	account, err := env.Accounts.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, errors.New("login unsuccessful, check username and password")
		}
		return nil, err
	}
	return account, nil
}

func writeHistory(w io.Writer, results []*models.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tLANGUAGE\tFILE\tSECONDS\tTEXT")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n",
			res.CreatedAt.Format("2006-01-02 15:04"),
			res.SourceLanguage,
			res.OriginalFilename,
			res.ProcessingDuration.Seconds(),
			truncate(res.TranslatedText, 60),
		)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
