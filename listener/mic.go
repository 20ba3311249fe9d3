package listener

import (
	"errors"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

type micSource struct {
	in     []int16
	stream *portaudio.Stream
	logger *zap.Logger
}

// NewMicSource opens the default recording device for mono 16-bit capture
// at the given rate and frame size.
func NewMicSource(sampleRate int, frameSize int, logger *zap.Logger) (FrameSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	in := make([]int16, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(in), in)
	if err != nil {
		portaudio.Terminate()

		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()

		return nil, err
	}

	return &micSource{
		in:     in,
		stream: stream,
		logger: logger,
	}, nil
}

// ReadFrame blocks until the device fills one frame. Overflow means the
// device dropped samples while we were busy; the frame is still usable, so
// it is returned anyway.
func (m *micSource) ReadFrame() ([]int16, error) {
	err := m.stream.Read()
	if err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, err
		}

		m.logger.Debug("input overflowed, keeping frame")
	}

	frame := make([]int16, len(m.in))
	copy(frame, m.in)

	return frame, nil
}

func (m *micSource) Close() error {
	if err := m.stream.Stop(); err != nil {
		m.logger.Warn("error stopping audio stream", zap.Error(err))
	}

	if err := m.stream.Close(); err != nil {
		m.logger.Warn("error closing audio stream", zap.Error(err))
	}

	return portaudio.Terminate()
}
