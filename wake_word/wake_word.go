package wake_word

import (
	"encoding/binary"
	"fmt"

	"github.com/pmdroid/microwakeword"
	"go.uber.org/zap"
)

// spotter is the part of the keyword-spotting model we depend on.
type spotter interface {
	ProcessStreaming(audio []byte) (bool, error)
}

type detectorImpl struct {
	spotter spotter
	logger  *zap.Logger
}

type disabledImpl struct{}

type Config struct {
	Model  string // builtin microwakeword model name
	Logger *zap.Logger
}

// New loads the keyword-spotting model. If the model fails to load the
// session still has to run, so a permanently disabled detector is returned
// after a single warning instead of an error.
func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	model, err := microwakeword.FromBuiltin(cfg.Model, microwakeword.DefaultRefractory)
	if err != nil {
		cfg.Logger.Warn("could not initialize wake word model, detection disabled",
			zap.String("model", cfg.Model),
			zap.Error(err))

		return NewDisabled(), nil
	}

	return &detectorImpl{
		spotter: model,
		logger:  cfg.Logger,
	}, nil
}

// NewDisabled returns a detector that never fires.
func NewDisabled() Interface {
	return &disabledImpl{}
}

func (d *detectorImpl) Detect(frame []int16) bool {
	detected, err := d.spotter.ProcessStreaming(frameToBytes(frame))
	if err != nil {
		d.logger.Warn("wake word detection failed for frame", zap.Error(err))

		return false
	}

	return detected
}

func (d *detectorImpl) Enabled() bool {
	return true
}

func (d *disabledImpl) Detect(_ []int16) bool {
	return false
}

func (d *disabledImpl) Enabled() bool {
	return false
}

// frameToBytes converts PCM samples to the little-endian byte stream the
// model consumes.
func frameToBytes(frame []int16) []byte {
	buf := make([]byte, len(frame)*2)
	for i, sample := range frame {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}

	return buf
}
