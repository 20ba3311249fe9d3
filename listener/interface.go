package listener

import "context"

type Interface interface {
	Listen(ctx context.Context) error
}

// FrameSource delivers fixed-size PCM frames from an audio input. ReadFrame
// blocks at the source's native cadence and returns io.EOF when the input
// is exhausted.
type FrameSource interface {
	ReadFrame() ([]int16, error)
	Close() error
}
