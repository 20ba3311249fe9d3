package archive

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"
)

// waveImpl writes flushed capture buffers as WAV files so transcription
// input can be replayed and inspected.
type waveImpl struct {
	fileSys    afero.Fs
	dir        string
	sampleRate int
}

type Config struct {
	FileSys    afero.Fs
	Dir        string
	SampleRate int
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sampleRate must be positive")
	}

	if err := cfg.FileSys.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	return &waveImpl{
		fileSys:    cfg.FileSys,
		dir:        cfg.Dir,
		sampleRate: cfg.SampleRate,
	}, nil
}

func (a *waveImpl) Save(samples []int16) (string, error) {
	waveFilename := filepath.Join(a.dir,
		"capture-"+strconv.FormatInt(time.Now().UnixNano(), 10)+".wav")

	waveFile, err := a.fileSys.Create(waveFilename)
	if err != nil {
		return "", err
	}

	param := wave.WriterParam{
		Out:           waveFile,
		Channel:       1,
		SampleRate:    a.sampleRate,
		BitsPerSample: 16,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		waveFile.Close()

		return "", err
	}

	if _, err := waveWriter.WriteSample16(samples); err != nil {
		waveWriter.Close()

		return "", err
	}

	if err := waveWriter.Close(); err != nil {
		return "", err
	}

	return waveFilename, nil
}
