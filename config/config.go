package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Short-flush policies: what to do with audio that is still shorter than
// min_audio_length when a flush is requested.
const (
	PolicyHold = "hold"
	PolicyDrop = "drop"
)

type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Wake          WakeConfig          `yaml:"wake"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Listen        ListenConfig        `yaml:"listen"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig describes the capture format. The whisper models expect
// 16 kHz mono 16-bit, so the defaults should rarely change.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	FrameSize  int `yaml:"frame_size"` // samples per frame
	Channels   int `yaml:"channels"`
}

// WakeConfig selects the keyword-spotting model and the sleep phrase that
// ends an active session.
type WakeConfig struct {
	Model     string `yaml:"model"` // builtin microwakeword model name
	SleepWord string `yaml:"sleep_word"`
}

type TranscriptionConfig struct {
	ModelPath        string  `yaml:"model_path"` // whisper ggml model file
	Language         string  `yaml:"language"`
	FlushInterval    float64 `yaml:"flush_interval"`     // seconds
	MinAudioLength   float64 `yaml:"min_audio_length"`   // seconds
	ShortFlushPolicy string  `yaml:"short_flush_policy"` // hold or drop
}

type ListenConfig struct {
	Duration      float64 `yaml:"duration"` // seconds, 0 means unlimited
	PreRollFrames int     `yaml:"pre_roll_frames"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a configuration matching the whisper capture format with a
// two second flush cadence.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			FrameSize:  512,
			Channels:   1,
		},
		Wake: WakeConfig{
			Model:     "okay_nabu",
			SleepWord: "bye",
		},
		Transcription: TranscriptionConfig{
			Language:         "en",
			FlushInterval:    2.0,
			MinAudioLength:   0.5,
			ShortFlushPolicy: PolicyHold,
		},
		Listen: ListenConfig{
			Duration:      0,
			PreRollFrames: 8,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Dir:     "captures",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file at path, applies environment overrides
// and validates the result.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv lets model locations come from the environment so config files
// stay shareable across machines.
func (c *Config) applyEnv() {
	if v := os.Getenv("WHISPER_MODEL_PATH"); v != "" {
		c.Transcription.ModelPath = v
	}

	if v := os.Getenv("WAKE_WORD_MODEL"); v != "" {
		c.Wake.Model = v
	}
}

func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Wake.Validate(); err != nil {
		return fmt.Errorf("wake config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Listen.Validate(); err != nil {
		return fmt.Errorf("listen config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.FrameSize <= 0 {
		return fmt.Errorf("frame_size must be positive, got %d", a.FrameSize)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	return nil
}

func (w *WakeConfig) Validate() error {
	if w.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if w.SleepWord == "" {
		return fmt.Errorf("sleep_word cannot be empty")
	}

	return nil
}

func (t *TranscriptionConfig) Validate() error {
	if t.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive, got %v", t.FlushInterval)
	}

	if t.MinAudioLength < 0 {
		return fmt.Errorf("min_audio_length cannot be negative, got %v", t.MinAudioLength)
	}

	if t.MinAudioLength > t.FlushInterval {
		return fmt.Errorf("min_audio_length (%v) cannot exceed flush_interval (%v)",
			t.MinAudioLength, t.FlushInterval)
	}

	if t.ShortFlushPolicy != PolicyHold && t.ShortFlushPolicy != PolicyDrop {
		return fmt.Errorf("short_flush_policy must be %q or %q, got %q",
			PolicyHold, PolicyDrop, t.ShortFlushPolicy)
	}

	return nil
}

func (l *ListenConfig) Validate() error {
	if l.Duration < 0 {
		return fmt.Errorf("duration cannot be negative, got %v", l.Duration)
	}

	if l.PreRollFrames < 0 {
		return fmt.Errorf("pre_roll_frames cannot be negative, got %d", l.PreRollFrames)
	}

	return nil
}

func (lg *LoggingConfig) Validate() error {
	switch lg.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", lg.Level)
	}
}

func (t *TranscriptionConfig) GetFlushInterval() time.Duration {
	return time.Duration(t.FlushInterval * float64(time.Second))
}

func (t *TranscriptionConfig) GetMinAudioLength() time.Duration {
	return time.Duration(t.MinAudioLength * float64(time.Second))
}

func (l *ListenConfig) GetDuration() time.Duration {
	return time.Duration(l.Duration * float64(time.Second))
}
