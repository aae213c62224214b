// Package openai implements speech.Transcriber on top of an
// OpenAI-compatible audio API (hosted Whisper or a self-hosted server that
// speaks the same protocol).
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config configures the client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the audio transcription and translation endpoints.
type Client struct {
	api   openai.Client
	model openai.AudioModel
}

// verboseResponse mirrors the verbose_json body; seconds are floats.
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// New builds a Client. Retries are disabled: a failed call is reported to
// the pipeline as-is.
func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := openai.AudioModel(cfg.Model)
	if model == "" {
		model = openai.AudioModelWhisper1
	}

	return &Client{api: openai.NewClient(opts...), model: model}
}

// Transcribe sends the audio to /audio/translations when opts.Translate is
// set and to /audio/transcriptions otherwise.
func (c *Client) Transcribe(ctx context.Context, in speech.Input, opts speech.Options) (*speech.Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	file := openai.File(bytes.NewReader(in.Data), in.Filename, common.AudioContentType(in.Filename))

	var raw verboseResponse
	var err error
	if opts.Translate {
		_, err = c.api.Audio.Translations.New(ctx, openai.AudioTranslationNewParams{
			File:           file,
			Model:          c.model,
			ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
		}, option.WithResponseBodyInto(&raw))
	} else {
		params := openai.AudioTranscriptionNewParams{
			File:           file,
			Model:          c.model,
			ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		}
		if opts.Language != "" {
			params.Language = openai.String(opts.Language)
		}
		_, err = c.api.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&raw))
	}
	if err != nil {
		return nil, classify(err)
	}

	res := &speech.Result{
		Text:           strings.TrimSpace(raw.Text),
		Language:       speech.NormalizeLanguage(raw.Language),
		Duration:       seconds(raw.Duration),
		Segments:       make([]speech.Segment, 0, len(raw.Segments)),
		ProcessingTime: time.Since(start),
	}
	if res.Language == "" && opts.Language != "" {
		res.Language = opts.Language
	}
	for _, s := range raw.Segments {
		res.Segments = append(res.Segments, speech.Segment{
			ID:    s.ID,
			Start: seconds(s.Start),
			End:   seconds(s.End),
			Text:  strings.TrimSpace(s.Text),
		})
	}

	return res, nil
}

// classify maps API failures onto the speech error kinds. Client errors
// other than timeouts and rate limits mean the audio itself was refused.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d: %s", speech.ErrRejected, code, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d", speech.ErrUnavailable, code)
	}
	return fmt.Errorf("%w: %w", speech.ErrUnavailable, err)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
