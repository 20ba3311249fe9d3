package session

import (
	"errors"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"go.uber.org/zap"

	"voice-wake-transcription/wake_word"
)

const (
	testSampleRate = 16000
	testFrameSize  = 512
	wakeMarker     = int16(999)
)

// fakeDetector fires on frames whose first sample is the wake marker.
type fakeDetector struct{}

func (f *fakeDetector) Detect(frame []int16) bool {
	return len(frame) > 0 && frame[0] == wakeMarker
}

func (f *fakeDetector) Enabled() bool { return true }

// fakeEngine records every transcription call and replies from a script,
// falling back to a default text once the script runs out.
type fakeEngine struct {
	calls       [][]int
	script      []string
	errs        []error
	defaultText string
}

func (f *fakeEngine) Transcribe(buf audio.Buffer) (string, error) {
	intBuf := buf.(*audio.IntBuffer)
	f.calls = append(f.calls, intBuf.Data)

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]

		if err != nil {
			return "", err
		}
	}

	if len(f.script) > 0 {
		text := f.script[0]
		f.script = f.script[1:]

		return text, nil
	}

	return f.defaultText, nil
}

type testHarness struct {
	session     Interface
	engine      *fakeEngine
	transcripts []Transcript
	activated   int
	deactivated int
}

func newHarness(t *testing.T, mutate func(*Config)) *testHarness {
	t.Helper()

	h := &testHarness{
		engine: &fakeEngine{defaultText: "still talking"},
	}

	cfg := &Config{
		WakeDetector:   &fakeDetector{},
		STTEngine:      h.engine,
		Sink:           func(tr Transcript) { h.transcripts = append(h.transcripts, tr) },
		OnActivate:     func() { h.activated++ },
		OnDeactivate:   func() { h.deactivated++ },
		SampleRate:     testSampleRate,
		FlushInterval:  2 * time.Second,
		MinAudioLength: 500 * time.Millisecond,
		SleepWord:      "bye",
		Logger:         zap.NewNop(),
	}

	if mutate != nil {
		mutate(cfg)
	}

	sess, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	h.session = sess

	return h
}

func silentFrame() []int16 {
	return make([]int16, testFrameSize)
}

func wakeFrame() []int16 {
	frame := make([]int16, testFrameSize)
	frame[0] = wakeMarker

	return frame
}

func (h *testHarness) wake(t *testing.T) {
	t.Helper()

	h.session.ProcessFrame(wakeFrame())

	if !h.session.Active() {
		t.Fatal("session should be active after wake frame")
	}
}

func TestIdleWithoutWakeWord(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 200; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if h.session.Active() {
		t.Error("session should stay idle without a wake word")
	}

	if h.session.BufferDuration() != 0 {
		t.Errorf("idle session should not buffer audio, got %v", h.session.BufferDuration())
	}

	if len(h.engine.calls) != 0 {
		t.Errorf("idle session should never call the engine, got %d calls", len(h.engine.calls))
	}
}

func TestActivationClearsBufferAndSignals(t *testing.T) {
	h := newHarness(t, nil)

	h.wake(t)

	if h.session.BufferDuration() != 0 {
		t.Errorf("buffer should be empty immediately after activation, got %v",
			h.session.BufferDuration())
	}

	if h.activated != 1 {
		t.Errorf("expected one activation signal, got %d", h.activated)
	}
}

func TestFlushFiresOnceAtThresholdCrossing(t *testing.T) {
	h := newHarness(t, nil)

	h.wake(t)

	// 512-sample frames at 16 kHz are 32 ms each; a 2 s threshold is
	// crossed at the 63rd frame.
	for i := 0; i < 62; i++ {
		h.session.ProcessFrame(silentFrame())

		if len(h.engine.calls) != 0 {
			t.Fatalf("flush fired early at frame %d", i+1)
		}
	}

	h.session.ProcessFrame(silentFrame())

	if len(h.engine.calls) != 1 {
		t.Fatalf("expected exactly one flush, got %d", len(h.engine.calls))
	}

	if got := len(h.engine.calls[0]); got != 63*testFrameSize {
		t.Errorf("expected %d samples in flush, got %d", 63*testFrameSize, got)
	}

	if h.session.BufferDuration() != 0 {
		t.Errorf("buffer should be empty after flush, got %v", h.session.BufferDuration())
	}

	if !h.session.Active() {
		t.Error("session should stay active when no sleep word is heard")
	}
}

func TestSleepWordDeactivatesCaseInsensitive(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.script = []string{"time to say ByE now"}

	h.wake(t)

	for i := 0; i < 63; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if h.session.Active() {
		t.Error("sleep word in any case should deactivate the session")
	}

	if h.deactivated != 1 {
		t.Errorf("expected one deactivation signal, got %d", h.deactivated)
	}

	if h.session.BufferDuration() != 0 {
		t.Errorf("buffer should be cleared on deactivation, got %v", h.session.BufferDuration())
	}

	// the fragment containing the sleep word is still delivered
	if len(h.transcripts) != 1 || h.transcripts[0].Text != "time to say ByE now" {
		t.Errorf("expected the sleep word fragment in the sink, got %v", h.transcripts)
	}
}

func TestTranscriptWithoutSleepWordKeepsSessionActive(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.script = []string{"nothing to see here"}

	h.wake(t)

	for i := 0; i < 63; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if !h.session.Active() {
		t.Error("session should remain active without the sleep word")
	}

	if len(h.transcripts) != 1 {
		t.Fatalf("expected one transcript, got %d", len(h.transcripts))
	}

	if h.transcripts[0].ID == "" {
		t.Error("transcript should carry an ID")
	}

	if h.transcripts[0].AudioDuration < 2*time.Second {
		t.Errorf("transcript should carry the flushed audio duration, got %v",
			h.transcripts[0].AudioDuration)
	}
}

func TestShortFlushHoldPolicyKeepsAudio(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		// one frame (32 ms) crosses the flush threshold but stays below
		// the minimum audio length
		cfg.FlushInterval = 32 * time.Millisecond
		cfg.MinAudioLength = 64 * time.Millisecond
	})

	h.wake(t)

	h.session.ProcessFrame(silentFrame())

	if len(h.engine.calls) != 0 {
		t.Fatal("below-minimum flush should not reach the engine")
	}

	if h.session.BufferDuration() == 0 {
		t.Fatal("hold policy should keep the short audio buffered")
	}

	h.session.ProcessFrame(silentFrame())

	if len(h.engine.calls) != 1 {
		t.Fatalf("expected one flush once enough audio accumulated, got %d", len(h.engine.calls))
	}

	if got := len(h.engine.calls[0]); got != 2*testFrameSize {
		t.Errorf("held audio should be included in the next flush, got %d samples", got)
	}
}

func TestShortFlushDropPolicyDiscardsAudio(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.FlushInterval = 32 * time.Millisecond
		cfg.MinAudioLength = 64 * time.Millisecond
		cfg.ShortFlushPolicy = "drop"
	})

	h.wake(t)

	for i := 0; i < 10; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if len(h.engine.calls) != 0 {
		t.Error("drop policy should never accumulate enough audio to flush")
	}

	if h.session.BufferDuration() != 0 {
		t.Errorf("drop policy should leave the buffer empty, got %v", h.session.BufferDuration())
	}
}

func TestTranscriptionFailureKeepsLoopAlive(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.errs = []error{errors.New("inference exploded")}

	h.wake(t)

	for i := 0; i < 63; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if !h.session.Active() {
		t.Error("engine failure should not change session state")
	}

	if h.session.BufferDuration() != 0 {
		t.Errorf("buffer should be cleared even when transcription fails, got %v",
			h.session.BufferDuration())
	}

	if len(h.transcripts) != 0 {
		t.Errorf("failed transcription should produce no transcript, got %v", h.transcripts)
	}

	// next flush works again
	for i := 0; i < 63; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if len(h.transcripts) != 1 {
		t.Errorf("session should recover after an engine failure, got %d transcripts",
			len(h.transcripts))
	}
}

func TestWhitespaceTranscriptIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.script = []string{"   "}

	h.wake(t)

	for i := 0; i < 63; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if len(h.transcripts) != 0 {
		t.Errorf("whitespace-only output should collapse to no transcript, got %v", h.transcripts)
	}

	if !h.session.Active() {
		t.Error("session should remain active after an empty transcript")
	}
}

func TestPreRollIsPrependedToFirstFlush(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.PreRollFrames = 2
	})

	lead := make([]int16, testFrameSize)
	lead[1] = 42

	h.session.ProcessFrame(lead)
	h.wake(t)

	for i := 0; i < 63; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	if len(h.engine.calls) != 1 {
		t.Fatalf("expected one flush, got %d", len(h.engine.calls))
	}

	// pre-roll holds the lead frame and the wake frame ahead of the 63
	// accumulated frames
	samples := h.engine.calls[0]
	if got := len(samples); got != 65*testFrameSize {
		t.Fatalf("expected %d samples including pre-roll, got %d", 65*testFrameSize, got)
	}

	if samples[1] != 42 {
		t.Error("pre-roll audio should lead the first flush")
	}

	if samples[testFrameSize] != int(wakeMarker) {
		t.Error("wake word frame should be part of the pre-roll")
	}
}

func TestDrainFlushesRemainder(t *testing.T) {
	h := newHarness(t, nil)

	h.wake(t)

	// one second of audio, below the 2 s threshold but above the minimum
	for i := 0; i < 32; i++ {
		h.session.ProcessFrame(silentFrame())
	}

	h.session.Drain()

	if len(h.engine.calls) != 1 {
		t.Fatalf("drain should force a flush, got %d calls", len(h.engine.calls))
	}

	if h.session.BufferDuration() != 0 {
		t.Errorf("buffer should be empty after drain, got %v", h.session.BufferDuration())
	}
}

func TestDrainDropsShortRemainder(t *testing.T) {
	h := newHarness(t, nil)

	h.wake(t)

	// two frames, well below the 500 ms minimum
	h.session.ProcessFrame(silentFrame())
	h.session.ProcessFrame(silentFrame())

	h.session.Drain()

	if len(h.engine.calls) != 0 {
		t.Error("a short remainder should not reach the engine on drain")
	}

	if h.session.BufferDuration() != 0 {
		t.Errorf("buffer should be empty after drain, got %v", h.session.BufferDuration())
	}
}

func TestNewValidatesConfig(t *testing.T) {
	logger := zap.NewNop()
	engine := &fakeEngine{}

	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{
			name: "nil detector",
			cfg: &Config{
				STTEngine: engine, Logger: logger,
				SampleRate: 16000, FlushInterval: time.Second, SleepWord: "bye",
			},
		},
		{
			name: "nil engine",
			cfg: &Config{
				WakeDetector: wake_word.NewDisabled(), Logger: logger,
				SampleRate: 16000, FlushInterval: time.Second, SleepWord: "bye",
			},
		},
		{
			name: "empty sleep word",
			cfg: &Config{
				WakeDetector: wake_word.NewDisabled(), STTEngine: engine, Logger: logger,
				SampleRate: 16000, FlushInterval: time.Second,
			},
		},
		{
			name: "bad policy",
			cfg: &Config{
				WakeDetector: wake_word.NewDisabled(), STTEngine: engine, Logger: logger,
				SampleRate: 16000, FlushInterval: time.Second, SleepWord: "bye",
				ShortFlushPolicy: "maybe",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected config error, got nil")
			}
		})
	}
}
