// Package speech defines the transcription capability consumed by the
// processing pipeline: recognized text, the detected source language and
// segment timings for one audio upload, optionally translated to English.
package speech

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrUnavailable means the backend could not be reached, timed out or
	// failed on its side. Callers treat it as a hard failure.
	ErrUnavailable = errors.New("transcription backend unavailable")
	// ErrRejected means the backend refused the input (corrupt or
	// unsupported audio).
	ErrRejected = errors.New("audio rejected by transcription backend")
	// ErrTooLarge means the backend refused the input for its size.
	ErrTooLarge = errors.New("audio exceeds backend size limit")
	// ErrEmptyAudio is returned before any backend call for empty input.
	ErrEmptyAudio = errors.New("empty audio")
)

// Segment represents a portion of recognized text with timestamps.
type Segment struct {
	ID    int           `json:"id"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Result holds the transcription outcome. In translate mode Text is
// English and Language is still the detected source language.
type Result struct {
	Text           string        `json:"text"`
	Language       string        `json:"language"`
	Duration       time.Duration `json:"duration"`
	Segments       []Segment     `json:"segments"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Options configures a transcription request.
type Options struct {
	Language  string // optional ISO-639-1 hint, ignored in translate mode
	Translate bool   // translate non-English speech into English
}

// Input is one audio payload. Filename is used by backends to infer the
// container format.
type Input struct {
	Data     []byte
	Filename string
}

// Transcriber describes a component capable of converting speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, in Input, opts Options) (*Result, error)
}

// Validate checks the input before a backend is called.
func (in Input) Validate() error {
	if len(in.Data) == 0 {
		return ErrEmptyAudio
	}
	return nil
}

// NormalizeLanguage maps a language name as reported by Whisper-style
// backends ("french") to its ISO-639-1 code ("fr"). Codes pass through
// lowercased; unknown names are returned lowercased.
func NormalizeLanguage(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageCodes[l]; ok {
		return code
	}
	return l
}

var languageCodes = map[string]string{
	"afrikaans":   "af",
	"arabic":      "ar",
	"armenian":    "hy",
	"azerbaijani": "az",
	"belarusian":  "be",
	"bengali":     "bn",
	"bosnian":     "bs",
	"bulgarian":   "bg",
	"catalan":     "ca",
	"chinese":     "zh",
	"croatian":    "hr",
	"czech":       "cs",
	"danish":      "da",
	"dutch":       "nl",
	"english":     "en",
	"estonian":    "et",
	"finnish":     "fi",
	"french":      "fr",
	"galician":    "gl",
	"georgian":    "ka",
	"german":      "de",
	"greek":       "el",
	"hebrew":      "he",
	"hindi":       "hi",
	"hungarian":   "hu",
	"icelandic":   "is",
	"indonesian":  "id",
	"italian":     "it",
	"japanese":    "ja",
	"kazakh":      "kk",
	"korean":      "ko",
	"latvian":     "lv",
	"lithuanian":  "lt",
	"macedonian":  "mk",
	"malay":       "ms",
	"marathi":     "mr",
	"nepali":      "ne",
	"norwegian":   "no",
	"persian":     "fa",
	"polish":      "pl",
	"portuguese":  "pt",
	"romanian":    "ro",
	"russian":     "ru",
	"serbian":     "sr",
	"slovak":      "sk",
	"slovenian":   "sl",
	"spanish":     "es",
	"swahili":     "sw",
	"swedish":     "sv",
	"tagalog":     "tl",
	"tamil":       "ta",
	"thai":        "th",
	"turkish":     "tr",
	"ukrainian":   "uk",
	"urdu":        "ur",
	"vietnamese":  "vi",
	"welsh":       "cy",
}
