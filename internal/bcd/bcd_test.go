package bcd

import (
	"testing"

	"dcf77/internal/seconds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// minutesField mirrors the real DCF77 minutes field layout: 7 bits of
// BCD starting at bit 21, plus an even-parity bit at bit 28.
func minutesField() *Decoder {
	return NewDecoder(21, 7, true, 0, 59, 4)
}

func frameWithField(startBit uint, fieldValue uint32, validBits uint8) seconds.Frame {
	return seconds.Frame{
		Bits:      uint64(fieldValue) << startBit,
		ValidBits: validBits,
	}
}

// TestDecoder_LocksOnSingleWellFormedFrame checks that a correctly
// BCD+parity encoded field locks to the right decimal value from a single
// minute.
func TestDecoder_LocksOnSingleWellFormedFrame(t *testing.T) {
	d := minutesField()
	// minutes = 34 -> BCD 0x34, parity bit set (0x34 has odd popcount in
	// its folded nibble), giving an 8-bit field value of 0xB4.
	frame := frameWithField(21, 0xB4, 60)

	require.True(t, d.Update(frame))

	value, ok := d.GetValue()
	require.True(t, ok)
	assert.Equal(t, uint8(34), value)
}

func TestDecoder_UpdateRejectsShortFrame(t *testing.T) {
	d := minutesField()
	frame := frameWithField(21, 0xB4, 10)
	assert.False(t, d.Update(frame))
}

func TestDecoder_SetPredictionRebasesLock(t *testing.T) {
	d := minutesField()
	frame := frameWithField(21, 0xB4, 60)
	require.True(t, d.Update(frame))

	value, ok := d.GetValue()
	require.True(t, ok)
	require.Equal(t, uint8(34), value)

	d.SetPrediction(35)
	value, ok = d.GetValue()
	require.True(t, ok)
	assert.Equal(t, uint8(35), value)
}

func TestDecoder_ClearDropsLock(t *testing.T) {
	d := minutesField()
	frame := frameWithField(21, 0xB4, 60)
	require.True(t, d.Update(frame))
	d.Clear()

	_, ok := d.GetValue()
	assert.False(t, ok)
}

func TestParityOdd(t *testing.T) {
	assert.True(t, parityOdd(0x34))
	assert.False(t, parityOdd(0x00))
}

func TestBCD2Int(t *testing.T) {
	assert.Equal(t, uint8(34), BCD2Int(0x34))
	assert.Equal(t, uint8(0), BCD2Int(0x00))
	assert.Equal(t, uint8(99), BCD2Int(0x99))
}

func TestInt2BCD(t *testing.T) {
	assert.Equal(t, uint8(0x34), Int2BCD(34))
	assert.Equal(t, uint8(0x00), Int2BCD(0))
	assert.Equal(t, uint8(0x99), Int2BCD(99))
}

// TestProperty_BCDRoundTrip exercises spec.md §8 property 4.
func TestProperty_BCDRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := uint8(rapid.IntRange(0, 99).Draw(rt, "value"))
		got := BCD2Int(Int2BCD(v))
		if got != v {
			rt.Fatalf("round trip failed: %d -> %d", v, got)
		}
	})
}

// TestProperty_ParityOddIsXORReduction exercises spec.md §8 property 5:
// parityOdd agrees with a naive popcount-based odd-parity check.
func TestProperty_ParityOddIsXORReduction(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := uint8(rapid.IntRange(0, 255).Draw(rt, "x"))
		ones := 0
		for b := x; b != 0; b &= b - 1 {
			ones++
		}
		want := ones%2 == 1
		if parityOdd(x) != want {
			rt.Fatalf("parityOdd(%#x) = %v, want %v", x, parityOdd(x), want)
		}
	})
}
