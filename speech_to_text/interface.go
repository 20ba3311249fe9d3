package speech_to_text

import "github.com/go-audio/audio"

type Interface interface {
	Transcribe(wavBuffer audio.Buffer) (string, error)
}
