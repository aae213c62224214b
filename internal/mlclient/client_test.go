package mlclient_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/mlclient"
	"github.com/dmitrijs2005/voicetranslator/internal/pipeline"
	"github.com/dmitrijs2005/voicetranslator/internal/processor"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	err  error
	opts speech.Options
}

func (s *stubTranscriber) Transcribe(ctx context.Context, in speech.Input, opts speech.Options) (*speech.Result, error) {
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &speech.Result{
		Text: "Good evening", Language: "de", Duration: 3 * time.Second,
		Segments: []speech.Segment{{ID: 0, Start: 0, End: 3 * time.Second, Text: "Good evening"}},
	}, nil
}

type stubSynth struct {
	err error
	req voice.Request
}

func (s *stubSynth) Clone(ctx context.Context, req voice.Request) (*voice.Audio, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &voice.Audio{Data: []byte("RIFFremote"), ContentType: "audio/wav"}, nil
}
func (s *stubSynth) Available(ctx context.Context) bool { return s.err == nil }
func (s *stubSynth) Info(ctx context.Context) voice.ModelInfo {
	return voice.ModelInfo{Model: "xtts_v2", Multilingual: true, Available: s.err == nil}
}

type noBlobs struct{}

func (noBlobs) Upload(context.Context, blobstore.Object, io.Reader) error { return nil }
func (noBlobs) Download(context.Context, string) (*blobstore.Object, io.ReadCloser, error) {
	return nil, nil, errors.New("unused")
}

type noPipeline struct{}

func (noPipeline) Process(context.Context, []byte, string) (*pipeline.Outcome, error) {
	return nil, errors.New("unused")
}

func newRemote(t *testing.T, tr *stubTranscriber, syn *stubSynth) *mlclient.Client {
	t.Helper()
	logger, err := logging.New(io.Discard, "text", "error")
	require.NoError(t, err)
	srv, err := processor.NewServer(":0", logger, tr, syn, noPipeline{}, noBlobs{}, 1<<20)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return mlclient.New(ts.URL+"/", 5*time.Second)
}

func TestTranscribe_Translate(t *testing.T) {
	tr := &stubTranscriber{}
	c := newRemote(t, tr, &stubSynth{})

	res, err := c.Transcribe(context.Background(), speech.Input{Data: []byte("RIFF"), Filename: "a.wav"}, speech.Options{Translate: true})
	require.NoError(t, err)
	assert.True(t, tr.opts.Translate)
	assert.Equal(t, "Good evening", res.Text)
	assert.Equal(t, "de", res.Language)
	assert.Equal(t, 3*time.Second, res.Duration)
	require.Len(t, res.Segments, 1)
}

func TestTranscribe_LanguageHint(t *testing.T) {
	tr := &stubTranscriber{}
	c := newRemote(t, tr, &stubSynth{})

	_, err := c.Transcribe(context.Background(), speech.Input{Data: []byte("RIFF"), Filename: "a.wav"}, speech.Options{Language: "de"})
	require.NoError(t, err)
	assert.False(t, tr.opts.Translate)
	assert.Equal(t, "de", tr.opts.Language)
}

func TestTranscribe_Errors(t *testing.T) {
	tr := &stubTranscriber{err: speech.ErrRejected}
	c := newRemote(t, tr, &stubSynth{})
	in := speech.Input{Data: []byte("RIFF"), Filename: "a.wav"}

	_, err := c.Transcribe(context.Background(), in, speech.Options{})
	assert.ErrorIs(t, err, speech.ErrRejected)

	tr.err = speech.ErrUnavailable
	_, err = c.Transcribe(context.Background(), in, speech.Options{})
	assert.ErrorIs(t, err, speech.ErrUnavailable)

	_, err = c.Transcribe(context.Background(), speech.Input{}, speech.Options{})
	assert.ErrorIs(t, err, speech.ErrEmptyAudio)
}

func TestClone(t *testing.T) {
	syn := &stubSynth{}
	c := newRemote(t, &stubTranscriber{}, syn)

	out, err := c.Clone(context.Background(), voice.Request{Reference: []byte("RIFFref"), ReferenceName: "ref.ogg", Text: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFremote"), out.Data)
	assert.Equal(t, "audio/wav", out.ContentType)
	assert.Equal(t, "en", syn.req.Language)
	assert.Equal(t, "Hello", syn.req.Text)
}

func TestClone_Errors(t *testing.T) {
	syn := &stubSynth{err: voice.ErrUnavailable}
	c := newRemote(t, &stubTranscriber{}, syn)
	req := voice.Request{Reference: []byte("RIFF"), ReferenceName: "ref.wav", Text: "Hello"}

	_, err := c.Clone(context.Background(), req)
	assert.ErrorIs(t, err, voice.ErrUnavailable)

	syn.err = voice.ErrBadReference
	_, err = c.Clone(context.Background(), req)
	assert.ErrorIs(t, err, voice.ErrBadReference)

	_, err = c.Clone(context.Background(), voice.Request{Reference: []byte("RIFF")})
	assert.ErrorIs(t, err, voice.ErrEmptyText)
}

func TestInfo(t *testing.T) {
	syn := &stubSynth{}
	c := newRemote(t, &stubTranscriber{}, syn)

	info := c.Info(context.Background())
	assert.Equal(t, "xtts_v2", info.Model)
	assert.True(t, c.Available(context.Background()))

	syn.err = voice.ErrUnavailable
	assert.False(t, c.Available(context.Background()))
}

func TestTranscribe_SizeLimit(t *testing.T) {
	c := newRemote(t, &stubTranscriber{}, &stubSynth{})

	_, err := c.Transcribe(context.Background(), speech.Input{Data: bytes.Repeat([]byte{1}, 1<<20), Filename: "a.wav"}, speech.Options{Translate: true})
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), speech.Input{Data: bytes.Repeat([]byte{1}, 1<<20+1), Filename: "a.wav"}, speech.Options{Translate: true})
	assert.ErrorIs(t, err, speech.ErrTooLarge)
	assert.NotErrorIs(t, err, speech.ErrRejected)
}

func TestUnreachableService(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := mlclient.New(url, time.Second)
	_, err := c.Transcribe(context.Background(), speech.Input{Data: []byte("RIFF"), Filename: "a.wav"}, speech.Options{Translate: true})
	assert.ErrorIs(t, err, speech.ErrUnavailable)

	_, err = c.Clone(context.Background(), voice.Request{Reference: []byte("RIFF"), Text: "hi"})
	assert.ErrorIs(t, err, voice.ErrUnavailable)

	assert.False(t, c.Available(context.Background()))
}

func TestMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write(bytes.Repeat([]byte("{"), 3))
	}))
	t.Cleanup(ts.Close)

	c := mlclient.New(ts.URL, time.Second)
	_, err := c.Transcribe(context.Background(), speech.Input{Data: []byte("RIFF"), Filename: "a.wav"}, speech.Options{})
	assert.ErrorIs(t, err, speech.ErrUnavailable)
}
