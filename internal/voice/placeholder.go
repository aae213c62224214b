package voice

import (
	"errors"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	PlaceholderSampleRate = 16000
	placeholderBitDepth   = 16
	wavFormatPCM          = 1
)

// Placeholder renders d of silence as a 16 kHz mono 16-bit PCM WAV. It
// stands in for synthesized audio when the backend is unavailable.
func Placeholder(d time.Duration) (*Audio, error) {
	if d <= 0 {
		d = time.Second
	}
	samples := int(d.Seconds() * PlaceholderSampleRate)

	out := &memWriteSeeker{}
	enc := wav.NewEncoder(out, PlaceholderSampleRate, placeholderBitDepth, 1, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: PlaceholderSampleRate},
		Data:           make([]int, samples),
		SourceBitDepth: placeholderBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return &Audio{Data: out.buf, ContentType: "audio/wav"}, nil
}

// memWriteSeeker is the in-memory io.WriteSeeker the WAV encoder needs to
// patch its header sizes on Close.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(next)
	return next, nil
}
