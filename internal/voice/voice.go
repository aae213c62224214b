// Package voice defines the voice-cloning synthesis capability: speak a
// text in the voice of a reference recording.
package voice

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyText is returned before any backend call when there is
	// nothing to synthesize.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrBadReference means the reference audio is missing or unreadable.
	ErrBadReference = errors.New("reference audio unreadable")
	// ErrUnavailable means the backend is down, timed out or never loaded
	// its model.
	ErrUnavailable = errors.New("voice synthesis unavailable")
)

// Request asks for Text to be spoken in the voice of Reference.
type Request struct {
	Reference     []byte
	ReferenceName string
	Text          string
	Language      string
}

// Audio is synthesized output.
type Audio struct {
	Data        []byte
	ContentType string
}

// ModelInfo describes the backend model, as reported by its health check.
type ModelInfo struct {
	Model        string `json:"model"`
	Device       string `json:"device"`
	Multilingual bool   `json:"multilingual"`
	Available    bool   `json:"available"`
}

// Synthesizer is a voice-cloning backend.
type Synthesizer interface {
	Clone(ctx context.Context, req Request) (*Audio, error)
	Available(ctx context.Context) bool
	Info(ctx context.Context) ModelInfo
}

// Validate checks a request before a backend is called.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Reference) == 0 {
		return ErrBadReference
	}
	return nil
}

// TargetLanguage returns the requested language or "en".
func (r Request) TargetLanguage() string {
	if r.Language == "" {
		return "en"
	}
	return r.Language
}
