package pin

import (
	"context"
	"time"
)

// Synthetic streams a 1kHz boolean sample sequence that reproduces a
// chosen sequence of per-second pulse durations, for exercising the
// pipeline without a real receiver module attached. A zero duration
// produces a second with no high level at all (the minute sync mark).
type Synthetic struct {
	pulses   []time.Duration
	idleHigh bool
}

// NewSynthetic builds a Synthetic source. idleHigh mirrors the Line
// polarity flag: when true, the generated samples are inverted before
// being handed to the caller, matching a receiver module that idles
// high.
func NewSynthetic(pulses []time.Duration, idleHigh bool) *Synthetic {
	return &Synthetic{pulses: pulses, idleHigh: idleHigh}
}

// Stream pushes one sample per simulated millisecond into sampleChan
// until every second in pulses has been emitted or ctx is canceled.
func (s *Synthetic) Stream(ctx context.Context, sampleChan chan<- bool) {
	for _, high := range s.pulses {
		for ms := 0; ms < 1000; ms++ {
			active := time.Duration(ms)*time.Millisecond < high
			if s.idleHigh {
				active = !active
			}
			select {
			case sampleChan <- active:
			case <-ctx.Done():
				return
			}
		}
	}
}
