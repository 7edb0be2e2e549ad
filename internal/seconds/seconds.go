// Package seconds implements the SecondsDecoder stage: it finds which of
// the 60 one-second pulses is the minute's sync mark, while shifting
// incoming pulses into a 60-bit frame for the BCD field decoders.
package seconds

import (
	"dcf77/internal/dsp"
	"dcf77/internal/symbol"
)

// SecondsPerMinute is the width of the minute correlator and the frame.
const SecondsPerMinute = 60

const lockThreshold = 7

// Frame holds one minute's worth of raw data bits plus how many of the
// 60 seconds actually contributed a bit (a partial frame, e.g. right
// after power-up, has ValidBits < 60).
type Frame struct {
	Bits      uint64
	ValidBits uint8
}

// DateParityValid checks even parity over bits 36-58 (the date fields:
// day, weekday, month, year, parity bit). The receiver reports the result
// alongside each decoded minute as a cross-check on the frame's date.
func (f Frame) DateParityValid() bool {
	return dataValid((f.Bits >> 28) & 0x7fffff00)
}

// Decoder is the SecondsDecoder stage.
type Decoder struct {
	bin            *dsp.ScoreBin
	activeBin      int
	cur            Frame
	prev           Frame
	minuteStartBin int
}

// NewDecoder constructs a SecondsDecoder with a cold-start lock state.
func NewDecoder() *Decoder {
	return &Decoder{
		bin:            dsp.NewScoreBin(SecondsPerMinute, 0),
		minuteStartBin: dsp.Unset,
	}
}

// Update feeds one second's classified pulse into the decoder. It shifts
// the bit into the current frame, scores the active bin against the
// known structural and parity markers of a DCF77 minute, and re-tracks
// the minute-start bin. Once the tracked second reads 59 (the sync-mark
// pulse has been shifted in), the completed frame is handed off and a
// fresh one started.
func (d *Decoder) Update(pulse symbol.Pulse) {
	d.cur.ValidBits++
	d.cur.Bits >>= 1
	if pulse.Class == symbol.PulseLong {
		d.cur.Bits |= uint64(1) << 59
	}

	if pulse.IsSyncCandidate || pulse.Class != symbol.PulseUnknown {
		d.bin.Add(d.activeBin, d.score(pulse))
	}

	d.minuteStartBin = d.bin.Maximum(lockThreshold)
	d.activeBin = dsp.Wrap(d.activeBin+1, SecondsPerMinute)

	if second, ok := d.CurrentSecond(); ok && second == 59 {
		d.prev = d.cur
		d.cur = Frame{}
	}
}

// score evaluates the structural markers a correctly-aligned frame must
// satisfy: a 0-bit on second 0, distinct timezone bits 17/18, a 1-bit on
// second 20, even parity over the minutes/hours/date fields, and a short
// pulse on the sync-mark second (59).
func (d *Decoder) score(pulse symbol.Pulse) int8 {
	x := d.cur.Bits
	var score int8

	if x&1 != 0 {
		score--
	} else {
		score++
	}

	if (x^(x>>1))&0x20000 != 0 {
		score++
	} else {
		score--
	}

	if x&0x100000 != 0 {
		score++
	} else {
		score--
	}

	if dataValid(x & 0x1FE00000) {
		score++
	} else {
		score--
	}

	if dataValid((x >> 4) & 0xFE000000) {
		score++
	} else {
		score--
	}

	if dataValid((x >> 28) & 0x7fffff00) {
		score++
	} else {
		score--
	}

	if pulse.IsSyncCandidate && pulse.Class == symbol.PulseShort {
		score += 6
	} else {
		score -= 6
	}

	return score
}

// CurrentSecond returns the decoder's best estimate of the current
// second within the minute. The second is only meaningful once the
// minute-start lock has been acquired at least once.
func (d *Decoder) CurrentSecond() (uint8, bool) {
	if d.minuteStartBin == dsp.Unset {
		return 0, false
	}
	second := dsp.Wrap(2*SecondsPerMinute+d.activeBin-2-d.minuteStartBin, SecondsPerMinute)
	return uint8(second), true
}

// PreviousFrame returns the most recently completed minute's frame and
// whether the decoder has ever locked (an unlocked decoder's frame is
// meaningless and should be discarded by the caller).
func (d *Decoder) PreviousFrame() (Frame, bool) {
	return d.prev, d.minuteStartBin != dsp.Unset
}

// Locked reports whether the minute-start bin has cleared the lock
// threshold at least once.
func (d *Decoder) Locked() bool {
	return d.minuteStartBin != dsp.Unset
}

// dataValid reports whether x is nonzero and has even parity, the shared
// check behind every field's parity bit in a DCF77 minute.
func dataValid(x uint64) bool {
	if x == 0 {
		return false
	}
	x ^= x >> 32
	x ^= x >> 16
	x ^= x >> 8
	x ^= x >> 4
	x &= 0xf
	return (0x6996>>x)&1 == 0
}
