// Package pin wraps the GPIO line a DCF77 receiver module's digital
// output is wired to, sampling it at the fixed 1kHz rate the symbol
// averager expects.
package pin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
)

const sampleInterval = time.Millisecond

// Line represents the GPIO input the receiver module drives.
type Line struct {
	line     *gpiocdev.Line
	logger   *logrus.Logger
	isOpen   bool
	cancelFn context.CancelFunc
}

// Open requests offset on the named gpiochip (e.g. "gpiochip0") as an
// input line.
func Open(chip string, offset int, logger *logrus.Logger) (*Line, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput)
	if err != nil {
		return nil, fmt.Errorf("failed to request gpio line: %w", err)
	}

	return &Line{
		line:   line,
		logger: logger,
		isOpen: true,
	}, nil
}

// StartSampling reads the line once per millisecond and pushes the raw
// boolean state into sampleChan, until ctx is canceled. Samples are
// dropped (with a debug log) if the channel isn't drained fast enough,
// the same backpressure policy the upstream capture loop applies to its
// own buffered channel.
func (l *Line) StartSampling(ctx context.Context, sampleChan chan<- bool) error {
	if !l.isOpen {
		return errors.New("gpio line not open")
	}

	captureCtx, cancel := context.WithCancel(ctx)
	l.cancelFn = cancel

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-captureCtx.Done():
			return nil
		case <-ticker.C:
			value, err := l.line.Value()
			if err != nil {
				l.logger.WithError(err).Error("failed to read gpio line")
				continue
			}
			select {
			case sampleChan <- value != 0:
			case <-captureCtx.Done():
				return nil
			default:
				l.logger.Debug("dropping sample, channel full")
			}
		}
	}
}

// Close releases the GPIO line.
func (l *Line) Close() error {
	if l.cancelFn != nil {
		l.cancelFn()
	}
	if l.line != nil && l.isOpen {
		if err := l.line.Close(); err != nil {
			return fmt.Errorf("failed to close gpio line: %w", err)
		}
		l.isOpen = false
	}
	return nil
}
