package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voice-wake-transcription/archive"
	"voice-wake-transcription/config"
	"voice-wake-transcription/ring_buffer"
	"voice-wake-transcription/speech_to_text"
	"voice-wake-transcription/wake_word"
)

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Transcript is one flushed fragment of recognized speech.
type Transcript struct {
	ID            string
	Text          string
	AudioDuration time.Duration
	CreatedAt     time.Time
}

// Sink receives each transcript fragment as it is produced.
type Sink func(t Transcript)

type sessionImpl struct {
	state        State
	buffer       []int16
	preRoll      *ring_buffer.Ring
	preRollTaken []int16

	wakeDetector wake_word.Interface
	sttEngine    speech_to_text.Interface
	archiver     archive.Interface
	sink         Sink
	onActivate   func()
	onDeactivate func()

	sampleRate       int
	flushInterval    time.Duration
	minAudioLength   time.Duration
	shortFlushPolicy string
	sleepWord        string

	logger *zap.Logger
}

type Config struct {
	WakeDetector wake_word.Interface
	STTEngine    speech_to_text.Interface
	Sink         Sink
	Archiver     archive.Interface // optional
	OnActivate   func()            // optional
	OnDeactivate func()            // optional

	SampleRate       int
	FlushInterval    time.Duration
	MinAudioLength   time.Duration
	ShortFlushPolicy string
	SleepWord        string
	PreRollFrames    int

	Logger *zap.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.WakeDetector == nil {
		return nil, fmt.Errorf("wakeDetector is nil")
	}

	if cfg.STTEngine == nil {
		return nil, fmt.Errorf("sttEngine is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sampleRate must be positive")
	}

	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("flushInterval must be positive")
	}

	if cfg.SleepWord == "" {
		return nil, fmt.Errorf("sleepWord is empty")
	}

	policy := cfg.ShortFlushPolicy
	if policy == "" {
		policy = config.PolicyHold
	}

	if policy != config.PolicyHold && policy != config.PolicyDrop {
		return nil, fmt.Errorf("unknown short flush policy: %q", policy)
	}

	return &sessionImpl{
		state:            StateIdle,
		preRoll:          ring_buffer.New(cfg.PreRollFrames),
		wakeDetector:     cfg.WakeDetector,
		sttEngine:        cfg.STTEngine,
		archiver:         cfg.Archiver,
		sink:             cfg.Sink,
		onActivate:       cfg.OnActivate,
		onDeactivate:     cfg.OnDeactivate,
		sampleRate:       cfg.SampleRate,
		flushInterval:    cfg.FlushInterval,
		minAudioLength:   cfg.MinAudioLength,
		shortFlushPolicy: policy,
		sleepWord:        cfg.SleepWord,
		logger:           cfg.Logger,
	}, nil
}

// ProcessFrame drives the state machine with one captured frame. While idle
// the frame only feeds the wake word detector and the pre-roll ring; while
// active it is accumulated until the buffered duration crosses the flush
// interval.
func (s *sessionImpl) ProcessFrame(frame []int16) {
	if s.state == StateIdle {
		s.preRoll.Add(frame)

		if s.wakeDetector.Detect(frame) {
			s.activate()
		}

		return
	}

	s.buffer = append(s.buffer, frame...)

	if s.BufferDuration() >= s.flushInterval {
		s.flush()
	}
}

// Drain forces a final flush of whatever is buffered, used when the audio
// source ends or the loop shuts down. The buffer is empty afterwards in
// every case.
func (s *sessionImpl) Drain() {
	if s.state != StateActive || len(s.buffer) == 0 {
		return
	}

	s.flush()

	// a held short remainder has nowhere to go once input has ended
	if len(s.buffer) > 0 {
		s.logger.Debug("dropping short remainder on drain",
			zap.Duration("duration", s.BufferDuration()))

		s.buffer = nil
	}
}

func (s *sessionImpl) Active() bool {
	return s.state == StateActive
}

// BufferDuration derives buffered audio time from the accumulated sample
// count. The pre-roll snapshot does not count toward the flush threshold.
func (s *sessionImpl) BufferDuration() time.Duration {
	return samplesDuration(len(s.buffer), s.sampleRate)
}

func (s *sessionImpl) activate() {
	s.state = StateActive
	s.buffer = nil
	s.preRollTaken = s.preRoll.Samples()
	s.preRoll.Clear()

	s.logger.Info("wake word detected, transcription active",
		zap.Duration("pre_roll", samplesDuration(len(s.preRollTaken), s.sampleRate)))

	if s.onActivate != nil {
		s.onActivate()
	}
}

func (s *sessionImpl) deactivate() {
	s.state = StateIdle
	s.buffer = nil
	s.preRollTaken = nil

	s.logger.Info("sleep word detected, transcription idle")

	if s.onDeactivate != nil {
		s.onDeactivate()
	}
}

// flush hands the accumulated audio to the transcription engine. Engine
// failures and empty transcripts keep the loop alive; only the sleep word
// changes state.
func (s *sessionImpl) flush() {
	samples := s.takeBuffer()
	duration := samplesDuration(len(samples), s.sampleRate)

	if duration < s.minAudioLength {
		if s.shortFlushPolicy == config.PolicyHold {
			s.buffer = samples

			return
		}

		s.logger.Debug("dropping audio below minimum length",
			zap.Duration("duration", duration))

		return
	}

	if s.archiver != nil {
		if _, err := s.archiver.Save(samples); err != nil {
			s.logger.Warn("could not archive capture", zap.Error(err))
		}
	}

	text, err := s.sttEngine.Transcribe(intBuffer(samples, s.sampleRate))
	if err != nil {
		s.logger.Warn("transcription failed, treating as no transcript", zap.Error(err))

		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	transcript := Transcript{
		ID:            uuid.NewString(),
		Text:          text,
		AudioDuration: duration,
		CreatedAt:     time.Now(),
	}

	if s.sink != nil {
		s.sink(transcript)
	}

	if s.containsSleepWord(text) {
		s.deactivate()
	}
}

// takeBuffer empties the buffer, prepending the pre-roll snapshot captured
// at activation to the first flush.
func (s *sessionImpl) takeBuffer() []int16 {
	samples := s.buffer
	s.buffer = nil

	if len(s.preRollTaken) > 0 {
		samples = append(s.preRollTaken, samples...)
		s.preRollTaken = nil
	}

	return samples
}

func (s *sessionImpl) containsSleepWord(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(s.sleepWord))
}

func samplesDuration(count int, sampleRate int) time.Duration {
	return time.Duration(count) * time.Second / time.Duration(sampleRate)
}

func intBuffer(samples []int16, sampleRate int) audio.Buffer {
	data := make([]int, len(samples))
	for i, sample := range samples {
		data[i] = int(sample)
	}

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}
