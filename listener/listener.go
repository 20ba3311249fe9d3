package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"voice-wake-transcription/session"
)

// loopImpl alternates between blocking frame reads and session processing.
// Single-threaded on purpose: a flush stalls capture until inference
// returns, which is acceptable at this scale.
type loopImpl struct {
	source  FrameSource
	session session.Interface
	budget  time.Duration
	logger  *zap.Logger
}

type Config struct {
	Source  FrameSource
	Session session.Interface
	Budget  time.Duration // 0 means no duration limit
	Logger  *zap.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Source == nil {
		return nil, fmt.Errorf("source is nil")
	}

	if cfg.Session == nil {
		return nil, fmt.Errorf("session is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	return &loopImpl{
		source:  cfg.Source,
		session: cfg.Session,
		budget:  cfg.Budget,
		logger:  cfg.Logger,
	}, nil
}

// Listen pulls frames until the source ends, the duration budget expires or
// the context is cancelled. The session is drained and the source released
// on every exit path.
func (l *loopImpl) Listen(ctx context.Context) (err error) {
	start := time.Now()

	defer func() {
		l.session.Drain()

		if closeErr := l.source.Close(); closeErr != nil {
			l.logger.Warn("error releasing audio source", zap.Error(closeErr))
		}
	}()

	l.logger.Info("starting to listen")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("interrupted, stopping listen loop")

			return nil
		default:
		}

		if l.budget > 0 && time.Since(start) >= l.budget {
			l.logger.Info("listen duration budget expired",
				zap.Duration("budget", l.budget))

			return nil
		}

		frame, readErr := l.source.ReadFrame()
		if errors.Is(readErr, io.EOF) {
			l.logger.Info("audio source exhausted")

			return nil
		}

		if readErr != nil {
			return fmt.Errorf("reading audio frame: %w", readErr)
		}

		l.session.ProcessFrame(frame)
	}
}
