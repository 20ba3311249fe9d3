package listener

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// wavFileSource replays a WAV file as fixed-size frames, letting the whole
// pipeline run against recorded audio instead of a microphone.
type wavFileSource struct {
	samples   []int16
	pos       int
	frameSize int
}

func NewWavFileSource(fileSys afero.Fs, path string, frameSize int) (FrameSource, error) {
	file, err := fileSys.Open(path)
	if err != nil {
		return nil, err
	}

	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	samples := make([]int16, len(buf.Data))
	for i, sample := range buf.Data {
		samples[i] = int16(sample)
	}

	return &wavFileSource{
		samples:   samples,
		frameSize: frameSize,
	}, nil
}

// ReadFrame returns the next frame, zero-padding the tail so the last
// samples still reach the session.
func (s *wavFileSource) ReadFrame() ([]int16, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}

	frame := make([]int16, s.frameSize)
	n := copy(frame, s.samples[s.pos:])
	s.pos += n

	return frame, nil
}

func (s *wavFileSource) Close() error {
	return nil
}
