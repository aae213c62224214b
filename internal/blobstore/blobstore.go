// Package blobstore stores synthesized audio by id. Backends live in the
// s3 and nats subpackages; both report missing ids as common.ErrorNotFound.
package blobstore

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metadata keys shared by the backends.
const (
	MetaSourceLanguage = "source-language"
	MetaTranslatedText = "translated-text"
	MetaCreatedAt      = "created-at"
	MetaFilename       = "filename"
	MetaContentType    = "content-type"
)

// maxTextMeta bounds the escaped translated text kept in metadata; the
// full text lives in the result record.
const maxTextMeta = 1024

// Metadata describes what a blob contains.
type Metadata struct {
	SourceLanguage string
	TranslatedText string
	CreatedAt      time.Time
}

// Object describes a stored blob.
type Object struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	Metadata    Metadata
}

// Store is a binary object store keyed by id.
type Store interface {
	Upload(ctx context.Context, obj Object, r io.Reader) error
	Download(ctx context.Context, id string) (*Object, io.ReadCloser, error)
}

// NewID allocates a fresh blob id.
func NewID() string {
	return uuid.NewString()
}

// Encode flattens m into ASCII-safe string pairs.
func (m Metadata) Encode() map[string]string {
	text := escapeBounded(m.TranslatedText, maxTextMeta)

	out := map[string]string{
		MetaSourceLanguage: m.SourceLanguage,
		MetaTranslatedText: text,
	}
	if !m.CreatedAt.IsZero() {
		out[MetaCreatedAt] = m.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// DecodeMetadata is the inverse of Metadata.Encode. Keys are matched
// case-insensitively since some backends canonicalize them.
func DecodeMetadata(in map[string]string) Metadata {
	get := func(key string) string {
		if v, ok := in[key]; ok {
			return v
		}
		for k, v := range in {
			if strings.EqualFold(k, key) {
				return v
			}
		}
		return ""
	}

	m := Metadata{SourceLanguage: get(MetaSourceLanguage)}
	if text, err := url.QueryUnescape(get(MetaTranslatedText)); err == nil {
		m.TranslatedText = text
	}
	if ts := get(MetaCreatedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			m.CreatedAt = t
		}
	}
	return m
}

// EncodeFilename makes a filename safe for ASCII-only metadata values such
// as S3 user metadata.
func EncodeFilename(name string) string {
	return url.PathEscape(name)
}

// DecodeFilename is the inverse of EncodeFilename. Values that are not
// valid escapes are returned as stored.
func DecodeFilename(v string) string {
	if name, err := url.PathUnescape(v); err == nil {
		return name
	}
	return v
}

// escapeBounded query-escapes s, dropping whole runes from the end until
// the escaped form fits in limit bytes.
func escapeBounded(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		esc := url.QueryEscape(string(r))
		if b.Len()+len(esc) > limit {
			break
		}
		b.WriteString(esc)
	}
	return b.String()
}
