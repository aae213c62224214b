// Package xtts implements voice.Synthesizer against an HTTP voice-cloning
// TTS server (XTTS/YourTTS style) that accepts a speaker reference clip,
// a text and a language, and answers with a WAV file.
package xtts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/netx"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
)

// API endpoints and paths.
const (
	apiClone  = "/v1/clone"
	apiHealth = "/health"
)

// Form field names.
const (
	formFieldSpeaker  = "speaker_wav"
	formFieldText     = "text"
	formFieldLanguage = "language"
)

// HealthCheckTimeout bounds Available and Info calls.
const HealthCheckTimeout = 5 * time.Second

// Client talks to the TTS server at baseURL.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type healthResponse struct {
	Status       string `json:"status"`
	Model        string `json:"model"`
	Device       string `json:"device"`
	Multilingual bool   `json:"multilingual"`
}

// New creates a client. timeout applies to every request.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Clone uploads the reference clip and text and returns the synthesized WAV.
func (c *Client) Clone(ctx context.Context, req voice.Request) (*voice.Audio, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := req.ReferenceName
	if name == "" {
		name = "reference.wav"
	}

	resp, err := netx.PostMultipart(ctx, c.httpClient, c.baseURL+apiClone,
		map[string]string{
			formFieldText:     req.Text,
			formFieldLanguage: req.TargetLanguage(),
		},
		netx.FilePart{
			Field:       formFieldSpeaker,
			Filename:    name,
			ContentType: common.AudioContentType(name),
			Data:        req.Reference,
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", voice.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", voice.ErrBadReference, netx.ErrorMessage(resp))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", voice.ErrUnavailable, resp.StatusCode, netx.ErrorMessage(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %w", voice.ErrUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: received empty audio data", voice.ErrUnavailable)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = "audio/wav"
	}
	return &voice.Audio{Data: data, ContentType: ct}, nil
}

// Available reports whether the server answers its health check with a
// loaded model.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.health(ctx)
	return err == nil
}

// Info returns model details, with Available=false when the health check fails.
func (c *Client) Info(ctx context.Context) voice.ModelInfo {
	h, err := c.health(ctx)
	if err != nil {
		return voice.ModelInfo{Available: false}
	}
	return voice.ModelInfo{
		Model:        h.Model,
		Device:       h.Device,
		Multilingual: h.Multilingual,
		Available:    true,
	}
}

func (c *Client) health(ctx context.Context) (*healthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned %s", resp.Status)
	}

	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	if h.Status != "" && h.Status != "ok" && h.Status != "healthy" {
		return nil, errors.New("model not loaded: " + h.Status)
	}
	return &h, nil
}
