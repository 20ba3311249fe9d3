package wake_word

type Interface interface {
	Detect(frame []int16) bool
	Enabled() bool
}
