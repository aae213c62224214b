package processor

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/processor/api"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/dmitrijs2005/voicetranslator/internal/voice"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const clonedFilename = "cloned_voice.wav"

// formOverhead is allowed on top of maxUploadBytes for the multipart
// envelope and text fields, so a file at the limit still fits.
const formOverhead = 1 << 20

// errBadUpload carries a message safe to return to the caller.
type errBadUpload struct {
	msg    string
	status int
}

func (e *errBadUpload) Error() string { return e.msg }

// readAudio validates and reads the uploaded audio part.
func (s *Server) readAudio(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes+formOverhead)

	fh, err := c.FormFile(api.FieldAudio)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", &errBadUpload{"File too large", http.StatusRequestEntityTooLarge}
		}
		return nil, "", &errBadUpload{"No audio file provided", http.StatusBadRequest}
	}
	if fh.Size > s.maxUploadBytes {
		return nil, "", &errBadUpload{"File too large", http.StatusRequestEntityTooLarge}
	}
	if fh.Filename == "" {
		return nil, "", &errBadUpload{"No file selected", http.StatusBadRequest}
	}
	if !common.IsAllowedAudioFile(fh.Filename) {
		return nil, "", &errBadUpload{"File type not allowed", http.StatusBadRequest}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", &errBadUpload{"Audio file is empty", http.StatusBadRequest}
	}
	return data, fh.Filename, nil
}

// fail writes the error body. Messages of internal failures never leave
// the service.
func (s *Server) fail(c *gin.Context, err error) {
	var bad *errBadUpload
	switch {
	case errors.As(err, &bad):
		c.JSON(bad.status, api.Error{Error: bad.msg})
	case errors.Is(err, speech.ErrRejected):
		c.JSON(http.StatusBadRequest, api.Error{Error: "Audio could not be processed"})
	case errors.Is(err, voice.ErrEmptyText):
		c.JSON(http.StatusBadRequest, api.Error{Error: "No speech detected"})
	case errors.Is(err, voice.ErrBadReference):
		c.JSON(http.StatusBadRequest, api.Error{Error: "Reference audio unreadable"})
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, api.Error{Error: "internal error"})
	}
}

func (s *Server) transcribe(c *gin.Context) {
	s.recognize(c, false)
}

func (s *Server) translate(c *gin.Context) {
	s.recognize(c, true)
}

func (s *Server) recognize(c *gin.Context, translate bool) {
	data, filename, err := s.readAudio(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	opts := speech.Options{Translate: translate}
	if !translate {
		opts.Language = strings.TrimSpace(c.PostForm(api.FieldLanguage))
	}

	res, err := s.transcriber.Transcribe(c.Request.Context(), speech.Input{Data: data, Filename: filename}, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	res.Language = speech.NormalizeLanguage(res.Language)

	c.JSON(http.StatusOK, api.FromSpeech(res, translate))
}

func (s *Server) voiceClone(c *gin.Context) {
	data, filename, err := s.readAudio(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	req := voice.Request{
		Reference:     data,
		ReferenceName: filename,
		Text:          c.PostForm(api.FieldText),
		Language:      c.PostForm(api.FieldTargetLanguage),
	}
	if err := req.Validate(); err != nil {
		s.fail(c, err)
		return
	}

	out, err := s.synthesizer.Clone(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}

	ct := out.ContentType
	if ct == "" {
		ct = "audio/wav"
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(clonedFilename))
	c.Data(http.StatusOK, ct, out.Data)
}

func (s *Server) process(c *gin.Context) {
	data, filename, err := s.readAudio(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	out, err := s.pipeline.Process(c.Request.Context(), data, filename)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.ProcessResult{
		Timestamp:      out.CreatedAt.UTC().Format(time.RFC3339Nano),
		SourceLanguage: out.SourceLanguage,
		EnglishText:    out.Text,
		OutputFileID:   out.BlobID,
		ProcessingTime: out.ProcessingTime.Seconds(),
		Degraded:       out.Degraded,
	})
}

func (s *Server) download(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, api.Error{Error: "File not found"})
		return
	}

	obj, rc, err := s.blobs.Download(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, api.Error{Error: "File not found"})
			return
		}
		s.fail(c, err)
		return
	}
	defer rc.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = "audio/wav"
	}
	size := obj.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, ct, rc, map[string]string{
		"Content-Disposition": "attachment; filename=" + strconv.Quote(obj.Filename),
	})
}

func (s *Server) health(c *gin.Context) {
	info := s.synthesizer.Info(c.Request.Context())
	status := "ok"
	if !info.Available {
		status = "degraded"
	}
	c.JSON(http.StatusOK, api.Health{Status: status, Voice: info})
}
