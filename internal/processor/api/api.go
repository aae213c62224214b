// Package api holds the JSON bodies exchanged with the processing service.
// Durations travel as seconds.
package api

import (
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
)

// Paths, relative to the service root.
const (
	PathTranscribe = "/api/transcribe"
	PathTranslate  = "/api/translate"
	PathVoiceClone = "/api/voice-clone"
	PathProcess    = "/api/process"
	PathDownload   = "/api/download/"
	PathHealth     = "/api/health"
)

// Form fields.
const (
	FieldAudio          = "audio"
	FieldLanguage       = "language"
	FieldText           = "text"
	FieldTargetLanguage = "target_language"
)

type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription answers transcribe (Language set) and translate
// (SourceLanguage set).
type Transcription struct {
	Text           string    `json:"text"`
	Language       string    `json:"language,omitempty"`
	SourceLanguage string    `json:"source_language,omitempty"`
	Duration       float64   `json:"duration"`
	Segments       []Segment `json:"segments"`
	ProcessingTime float64   `json:"processing_time"`
}

type ProcessResult struct {
	Timestamp      string  `json:"timestamp"`
	SourceLanguage string  `json:"source_language"`
	EnglishText    string  `json:"english_text"`
	OutputFileID   string  `json:"output_file_id"`
	ProcessingTime float64 `json:"processing_time"`
	Degraded       bool    `json:"degraded"`
}

type Health struct {
	Status string          `json:"status"`
	Voice  voice.ModelInfo `json:"voice"`
}

type Error struct {
	Error string `json:"error"`
}

// FromSpeech converts a transcription result for the wire.
func FromSpeech(r *speech.Result, translated bool) Transcription {
	t := Transcription{
		Text:           r.Text,
		Duration:       r.Duration.Seconds(),
		Segments:       make([]Segment, 0, len(r.Segments)),
		ProcessingTime: r.ProcessingTime.Seconds(),
	}
	if translated {
		t.SourceLanguage = r.Language
	} else {
		t.Language = r.Language
	}
	for _, s := range r.Segments {
		t.Segments = append(t.Segments, Segment{ID: s.ID, Start: s.Start.Seconds(), End: s.End.Seconds(), Text: s.Text})
	}
	return t
}

// ToSpeech is the inverse of FromSpeech.
func (t Transcription) ToSpeech() *speech.Result {
	lang := t.Language
	if t.SourceLanguage != "" {
		lang = t.SourceLanguage
	}
	r := &speech.Result{
		Text:           t.Text,
		Language:       lang,
		Duration:       seconds(t.Duration),
		ProcessingTime: seconds(t.ProcessingTime),
	}
	for _, s := range t.Segments {
		r.Segments = append(r.Segments, speech.Segment{ID: s.ID, Start: seconds(s.Start), End: seconds(s.End), Text: s.Text})
	}
	return r
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
