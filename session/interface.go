package session

import "time"

type Interface interface {
	ProcessFrame(frame []int16)
	Drain()
	Active() bool
	BufferDuration() time.Duration
}
