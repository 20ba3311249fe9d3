package ring_buffer

// Ring keeps the most recent frames so that audio heard just before wake
// word detection is not lost. Frames are copied on Add; the oldest frame is
// overwritten once the ring is full.
type Ring struct {
	frames [][]int16
	head   int
	count  int
}

func New(capacity int) *Ring {
	return &Ring{
		frames: make([][]int16, capacity),
	}
}

func (r *Ring) Add(frame []int16) {
	if len(r.frames) == 0 {
		return
	}

	stored := make([]int16, len(frame))
	copy(stored, frame)

	r.frames[r.head] = stored
	r.head = (r.head + 1) % len(r.frames)

	if r.count < len(r.frames) {
		r.count++
	}
}

// Frames returns the buffered frames in arrival order, oldest first.
func (r *Ring) Frames() [][]int16 {
	if r.count == 0 {
		return nil
	}

	frames := make([][]int16, 0, r.count)

	start := (r.head - r.count + len(r.frames)) % len(r.frames)
	for i := 0; i < r.count; i++ {
		frames = append(frames, r.frames[(start+i)%len(r.frames)])
	}

	return frames
}

// Samples returns the buffered frames concatenated into one slice, oldest
// samples first.
func (r *Ring) Samples() []int16 {
	var samples []int16
	for _, frame := range r.Frames() {
		samples = append(samples, frame...)
	}

	return samples
}

func (r *Ring) Len() int {
	return r.count
}

func (r *Ring) Clear() {
	for i := range r.frames {
		r.frames[i] = nil
	}

	r.head = 0
	r.count = 0
}
