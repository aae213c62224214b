// Package mlclient lets the web tier use a remote processing service as
// its transcription and voice-cloning backends.
package mlclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/netx"
	"github.com/dmitrijs2005/voicetranslator/internal/processor/api"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
)

const healthTimeout = 5 * time.Second

// Client implements speech.Transcriber and voice.Synthesizer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ speech.Transcriber = (*Client)(nil)
	_ voice.Synthesizer  = (*Client)(nil)
)

// New creates a client for the service at baseURL. Per-call limits come
// from the caller's context; timeout is an outer bound.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Transcribe(ctx context.Context, in speech.Input, opts speech.Options) (*speech.Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	path := api.PathTranscribe
	fields := map[string]string{}
	if opts.Translate {
		path = api.PathTranslate
	} else if opts.Language != "" {
		fields[api.FieldLanguage] = opts.Language
	}

	resp, err := netx.PostMultipart(ctx, c.httpClient, c.baseURL+path, fields, audioPart(in.Data, in.Filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", speech.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, fmt.Errorf("%w: %s", speech.ErrTooLarge, netx.ErrorMessage(resp))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: %s", speech.ErrRejected, netx.ErrorMessage(resp))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", speech.ErrUnavailable, resp.StatusCode, netx.ErrorMessage(resp))
	}

	var t api.Transcription
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", speech.ErrUnavailable, err)
	}
	return t.ToSpeech(), nil
}

func (c *Client) Clone(ctx context.Context, req voice.Request) (*voice.Audio, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := netx.PostMultipart(ctx, c.httpClient, c.baseURL+api.PathVoiceClone,
		map[string]string{
			api.FieldText:           req.Text,
			api.FieldTargetLanguage: req.TargetLanguage(),
		},
		audioPart(req.Reference, req.ReferenceName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", voice.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: %s", voice.ErrBadReference, netx.ErrorMessage(resp))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", voice.ErrUnavailable, resp.StatusCode, netx.ErrorMessage(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %w", voice.ErrUnavailable, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/wav"
	}
	return &voice.Audio{Data: data, ContentType: ct}, nil
}

func (c *Client) Available(ctx context.Context) bool {
	return c.Info(ctx).Available
}

// Info reports the voice model behind the service. Any failure reads as
// unavailable.
func (c *Client) Info(ctx context.Context) voice.ModelInfo {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+api.PathHealth, http.NoBody)
	if err != nil {
		return voice.ModelInfo{}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return voice.ModelInfo{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return voice.ModelInfo{}
	}
	var h api.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return voice.ModelInfo{}
	}
	return h.Voice
}

func audioPart(data []byte, filename string) netx.FilePart {
	if filename == "" {
		filename = "audio.wav"
	}
	return netx.FilePart{
		Field:       api.FieldAudio,
		Filename:    filename,
		ContentType: common.AudioContentType(filename),
		Data:        data,
	}
}
