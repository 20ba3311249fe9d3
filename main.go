package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voice-wake-transcription/archive"
	"voice-wake-transcription/config"
	"voice-wake-transcription/listener"
	"voice-wake-transcription/session"
	"voice-wake-transcription/speech_to_text"
	"voice-wake-transcription/wake_word"
)

func main() {
	configFlag := flag.String("c", "", "path to config file")
	modelFlag := flag.String("m", "", "model file for whisper")
	wavFlag := flag.String("f", "", "transcribe a wav file instead of the microphone")

	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	fileSys := afero.NewOsFs()

	cfg, err := config.Load(fileSys, *configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if *modelFlag != "" {
		cfg.Transcription.ModelPath = *modelFlag
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}

	defer logger.Sync()

	if cfg.Transcription.ModelPath == "" {
		logger.Fatal("whisper model not specified, use -m or WHISPER_MODEL_PATH")
	}

	model, err := whisper.New(cfg.Transcription.ModelPath)
	if err != nil {
		logger.Fatal("error loading whisper model", zap.Error(err))
	}

	defer model.Close()

	sttEngine, err := speech_to_text.New(&speech_to_text.Config{
		Model:    model,
		Language: cfg.Transcription.Language,
	})
	if err != nil {
		logger.Fatal("error with speech_to_text.New", zap.Error(err))
	}

	wakeDetector, err := wake_word.New(&wake_word.Config{
		Model:  cfg.Wake.Model,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("error with wake_word.New", zap.Error(err))
	}

	var archiver archive.Interface
	if cfg.Archive.Enabled {
		archiver, err = archive.New(&archive.Config{
			FileSys:    fileSys,
			Dir:        cfg.Archive.Dir,
			SampleRate: cfg.Audio.SampleRate,
		})
		if err != nil {
			logger.Fatal("error with archive.New", zap.Error(err))
		}
	}

	sess, err := session.New(&session.Config{
		WakeDetector:     wakeDetector,
		STTEngine:        sttEngine,
		Archiver:         archiver,
		Sink:             printTranscript,
		OnActivate:       func() { fmt.Println("\n[listening - start speaking]") },
		OnDeactivate:     func() { fmt.Println("\n[going back to sleep]") },
		SampleRate:       cfg.Audio.SampleRate,
		FlushInterval:    cfg.Transcription.GetFlushInterval(),
		MinAudioLength:   cfg.Transcription.GetMinAudioLength(),
		ShortFlushPolicy: cfg.Transcription.ShortFlushPolicy,
		SleepWord:        cfg.Wake.SleepWord,
		PreRollFrames:    cfg.Listen.PreRollFrames,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("error with session.New", zap.Error(err))
	}

	var source listener.FrameSource
	if *wavFlag != "" {
		source, err = listener.NewWavFileSource(fileSys, *wavFlag, cfg.Audio.FrameSize)
	} else {
		source, err = listener.NewMicSource(cfg.Audio.SampleRate, cfg.Audio.FrameSize, logger)
	}
	if err != nil {
		logger.Fatal("error opening audio source", zap.Error(err))
	}

	loop, err := listener.New(&listener.Config{
		Source:  source,
		Session: sess,
		Budget:  cfg.Listen.GetDuration(),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("error with listener.New", zap.Error(err))
	}

	printInstructions(cfg, wakeDetector.Enabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loop.Listen(ctx); err != nil {
		logger.Fatal("error while listening", zap.Error(err))
	}
}

// printTranscript writes fragments without newlines for a continuous feel.
func printTranscript(t session.Transcript) {
	fmt.Printf("%s ", t.Text)
}

func printInstructions(cfg *config.Config, wakeEnabled bool) {
	fmt.Println("--------------------------------------------------")
	if wakeEnabled {
		fmt.Printf("1. Say the wake word (%q model) to activate\n", cfg.Wake.Model)
	} else {
		fmt.Println("1. Wake word detection is disabled (model failed to load)")
	}
	fmt.Println("2. Speak normally - text appears as you talk")
	fmt.Printf("3. Say %q to deactivate\n", cfg.Wake.SleepWord)
	fmt.Println("4. Press Ctrl+C to exit")
	fmt.Println("--------------------------------------------------")
}

func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
