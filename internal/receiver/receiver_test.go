package receiver

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcf77/internal/pin"
)

const shortPulse = 100 * time.Millisecond
const longPulse = 200 * time.Millisecond

// buildMinutePulses turns a 59-bit frame value into 60 per-second pulse
// durations: a short pulse per 0-bit, a long pulse per 1-bit, and no
// pulse at all on second 59 (the minute sync gap).
func buildMinutePulses(frameBits uint64) []time.Duration {
	pulses := make([]time.Duration, 60)
	for k := 0; k < 59; k++ {
		if frameBits&(uint64(1)<<uint(k)) != 0 {
			pulses[k] = longPulse
		} else {
			pulses[k] = shortPulse
		}
	}
	pulses[59] = 0
	return pulses
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// TestReceiver_DecodesScenarioS1 exercises scenario S1: frame
// 0x623a4843141ae6 decodes to Sat 2018-11-24 02:18 CET, Unix epoch
// 1543022280. It also exercises spec.md §8 property 7: the correct
// minute appears within a handful of repeated frames while the phase
// and BCD correlators warm up.
func TestReceiver_DecodesScenarioS1(t *testing.T) {
	const frameBits = uint64(0x623a4843141ae6) &^ (uint64(1) << 59)
	pulses := buildMinutePulses(frameBits)

	r := New(false, discardLogger())
	var epochs []int64
	r.OnMinute(func(epoch int64, dateParityValid bool) {
		if dateParityValid {
			epochs = append(epochs, epoch)
		}
	})

	source := pin.NewSynthetic(repeat(pulses, 5), false)
	samples := make(chan bool, 8000)
	go func() {
		source.Stream(context.Background(), samples)
		close(samples)
	}()
	for raw := range samples {
		r.Sample(raw)
	}

	require.NotEmpty(t, epochs, "expected at least one decoded minute")
	assert.Contains(t, epochs, int64(1543022280))
}

// TestReceiver_EmitsMinuteDespiteBadDateParity confirms the orchestrator
// does not gate emission on the frame's date-parity cross-check: a frame
// with every field decoder locked but a flipped date-parity bit still
// fires OnMinute, reporting the check's result rather than suppressing
// the minute.
func TestReceiver_EmitsMinuteDespiteBadDateParity(t *testing.T) {
	const frameBits = (uint64(0x623a4843141ae6) &^ (uint64(1) << 59)) ^ (uint64(1) << 58)
	pulses := buildMinutePulses(frameBits)

	r := New(false, discardLogger())
	var sawInvalidParity bool
	var epochs []int64
	r.OnMinute(func(epoch int64, dateParityValid bool) {
		epochs = append(epochs, epoch)
		if !dateParityValid {
			sawInvalidParity = true
		}
	})

	source := pin.NewSynthetic(repeat(pulses, 5), false)
	samples := make(chan bool, 8000)
	go func() {
		source.Stream(context.Background(), samples)
		close(samples)
	}()
	for raw := range samples {
		r.Sample(raw)
	}

	require.NotEmpty(t, epochs, "expected a minute to be emitted despite bad date parity")
	assert.True(t, sawInvalidParity, "expected at least one emission to report a failed date parity check")
}

func repeat(pulses []time.Duration, n int) []time.Duration {
	var out []time.Duration
	for i := 0; i < n; i++ {
		out = append(out, pulses...)
	}
	return out
}
