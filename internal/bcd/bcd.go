// Package bcd implements the BcdDecoder stage: a parameterized correlator
// that extracts one BCD-encoded field (minutes, hours, day, month, or
// year) out of a SecondsDecoder frame and tracks its decimal value
// across minutes even through the occasional garbled frame.
package bcd

import (
	"math/bits"

	"dcf77/internal/dsp"
	"dcf77/internal/seconds"
)

// Decoder extracts one fixed-width BCD field from a 60-bit minute frame.
// Rather than trusting a single frame's bits outright, it scores every
// possible decimal value in the field's range against the observed bits
// each minute and locks onto whichever value correlates best over time.
type Decoder struct {
	startBit      uint
	bitWidth      uint
	withParity    bool
	lowestValue   uint8
	highestValue  uint8
	lockThreshold int8
	currentTick   uint8
	bin           *dsp.ScoreBin
}

// NewDecoder constructs a BcdDecoder for a field occupying bitWidth bits
// (plus one more if withParity) starting at startBit within the minute
// frame, whose decimal value ranges over [lowestValue, highestValue].
func NewDecoder(startBit, bitWidth uint, withParity bool, lowestValue, highestValue uint8, lockThreshold int8) *Decoder {
	return &Decoder{
		startBit:      startBit,
		bitWidth:      bitWidth,
		withParity:    withParity,
		lowestValue:   lowestValue,
		highestValue:  highestValue,
		lockThreshold: lockThreshold,
		bin:           dsp.NewScoreBin(int(highestValue-lowestValue)+1, 0),
	}
}

// Clear resets every candidate value's score, discarding the current
// lock.
func (d *Decoder) Clear() {
	d.bin.Clear()
}

// Update scores every candidate decimal value in range against the bits
// actually observed in frame, by comparing each candidate's predicted
// BCD+parity encoding against the observed bits with a Hamming-distance
// correlation. Returns false if frame doesn't have enough valid bits to
// cover this field.
func (d *Decoder) Update(frame seconds.Frame) bool {
	fieldBits := d.bitWidth
	if d.withParity {
		fieldBits++
	}
	if uint(frame.ValidBits) < seconds.SecondsPerMinute-d.startBit {
		return false
	}

	newData := uint32(frame.Bits>>d.startBit) & ((uint32(1) << fieldBits) - 1)

	for i := 0; i < d.bin.Size(); i++ {
		prediction := uint32(int2bcd(d.valueInRange(i)))
		if d.withParity && parityOdd(uint8(prediction)) {
			prediction |= 1 << d.bitWidth
		}
		score := int8(fieldBits>>1) - int8(bits.OnesCount32(newData^prediction))
		d.bin.Add(i, score)
	}
	return true
}

// SetPrediction re-bases the candidate value ring so that whatever value
// is currently locked is reinterpreted as prediction. The receiver calls
// it after every decoded minute to roll the locked value forward to the
// calendar's prediction for the next minute (minutes roll over into
// hours, etc).
func (d *Decoder) SetPrediction(prediction uint8) {
	bin := d.bin.Maximum(d.lockThreshold)
	if bin == dsp.Unset {
		return
	}
	size := d.bin.Size()
	d.currentTick = uint8(dsp.Wrap(size+int(prediction)-int(d.lowestValue)-bin, size))
}

// GetValue returns the locked decimal value and true, or false if no
// candidate has cleared the lock threshold yet.
func (d *Decoder) GetValue() (uint8, bool) {
	bin := d.bin.Maximum(d.lockThreshold)
	if bin == dsp.Unset {
		return 0, false
	}
	return d.valueInRange(bin), true
}

// valueInRange maps a bin offset (plus the current prediction rotation)
// back onto a decimal value in [lowestValue, highestValue].
func (d *Decoder) valueInRange(binOffset int) uint8 {
	size := d.bin.Size()
	return d.lowestValue + uint8(dsp.Wrap(binOffset+int(d.currentTick), size))
}

// BCD2Int converts a packed binary-coded-decimal byte (high nibble tens,
// low nibble units) into its decimal value.
func BCD2Int(bcd uint8) uint8 {
	ret := bcd & 0xF
	bcd &= 0xF0
	return (bcd >> 1) + (bcd >> 3) + ret
}

// Int2BCD converts a decimal value in [0, 99] into packed BCD.
func Int2BCD(value uint8) uint8 {
	highNibble := value / 10
	return (highNibble << 2) + (highNibble << 1) + value
}

func int2bcd(value uint8) uint8 {
	return Int2BCD(value)
}

// parityOdd reports whether x has an odd number of set bits in its low
// nibble pair (the same fold used for the frame-level parity checks).
func parityOdd(x uint8) bool {
	x ^= x >> 4
	x &= 0xf
	return (0x6996>>x)&1 != 0
}
