package speech_to_text

import (
	"fmt"
	"io"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"
)

type sttImpl struct {
	model    whisper.Model
	language string
}

type Config struct {
	Model    whisper.Model
	Language string
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	return &sttImpl{
		model:    cfg.Model,
		language: cfg.Language,
	}, nil
}

// Transcribe runs the buffer through whisper and returns the joined segment
// text. Whitespace-only output collapses to an empty string so callers can
// treat it as "no transcript".
func (stt *sttImpl) Transcribe(wavBuffer audio.Buffer) (string, error) {
	context, err := stt.model.NewContext()
	if err != nil {
		return "", err
	}

	context.SetTranslate(false)

	if stt.language != "" {
		if err := context.SetLanguage(stt.language); err != nil {
			return "", err
		}
	}

	data := wavBuffer.AsFloat32Buffer().Data

	var cb whisper.SegmentCallback

	if err := context.Process(data, cb); err != nil {
		return "", err
	}

	texts, err := collectSegments(context)
	if err != nil {
		return "", err
	}

	return joinSegments(texts), nil
}

func collectSegments(context whisper.Context) ([]string, error) {
	seenText := make(map[string]bool)

	texts := make([]string, 0)

	for {
		segment, err := context.NextSegment()
		if err == io.EOF {
			return texts, nil
		} else if err != nil {
			return nil, err
		}

		if !keepSegment(segment.Text, seenText) {
			continue
		}

		seenText[segment.Text] = true
		texts = append(texts, segment.Text)
	}
}

// keepSegment drops whisper's non-speech annotations and repeated segments.
// Annotations arrive wrapped in parentheses or brackets, e.g. "(music)".
func keepSegment(text string, seen map[string]bool) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if trimmed[0] == '(' || trimmed[0] == '[' ||
		trimmed[len(trimmed)-1] == ')' || trimmed[len(trimmed)-1] == ']' {
		return false
	}

	if seen[text] {
		return false
	}

	return true
}

func joinSegments(texts []string) string {
	joined := strings.Builder{}

	for _, text := range texts {
		joined.WriteString(text)
		joined.WriteString(" ")
	}

	return strings.TrimSpace(joined.String())
}
