package archive

import (
	"testing"

	"github.com/spf13/afero"
)

func TestSaveWritesWavFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	archiver, err := New(&Config{
		FileSys:    fs,
		Dir:        "captures",
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	samples := make([]int16, 512)
	for i := range samples {
		samples[i] = int16(i)
	}

	path, err := archiver.Save(samples)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("archived file missing: %v", err)
	}

	// 44-byte WAV header plus two bytes per sample
	if info.Size() <= int64(len(samples)*2) {
		t.Errorf("archived file suspiciously small: %d bytes", info.Size())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}

	if _, err := New(&Config{Dir: "x", SampleRate: 16000}); err == nil {
		t.Error("expected error for nil fileSys")
	}

	if _, err := New(&Config{FileSys: afero.NewMemMapFs(), Dir: "x"}); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
