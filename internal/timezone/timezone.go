// Package timezone implements the TimezoneDecoder stage: it tracks the
// CEST/CET bits and the change-announcement bit of each minute frame,
// and resolves the UTC offset to apply — including the one-shot hour
// correction needed exactly on the minute a DST transition takes effect.
package timezone

import (
	"math"
	"time"

	"dcf77/internal/seconds"
)

const (
	startBit          = 16
	timezoneChangeBit = uint64(1) << 16
	cestBit           = uint64(1) << 17
	cetBit            = uint64(1) << 18
)

// Decoder is the TimezoneDecoder stage.
type Decoder struct {
	timeZoneChangeAnnounced uint8
	isSummerTime            int8
}

// NewDecoder constructs a TimezoneDecoder with no pending DST state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Clear discards all accumulated state, as if the decoder had just
// powered on.
func (d *Decoder) Clear() {
	d.timeZoneChangeAnnounced = 0
	d.isSummerTime = 0
}

// Update feeds one minute's frame into the decoder. isSummerTime is a
// saturating counter nudged by the CEST/CET bits each minute rather than
// trusted outright from a single frame, and timeZoneChangeAnnounced
// likewise accumulates evidence of the announcement bit before the
// transition-hour correction in Resolve is allowed to act on it.
func (d *Decoder) Update(frame seconds.Frame) bool {
	if uint(frame.ValidBits) < seconds.SecondsPerMinute-startBit {
		return false
	}

	if frame.Bits&cestBit != 0 && d.isSummerTime < math.MaxInt8 {
		d.isSummerTime++
	}
	if frame.Bits&cetBit != 0 && d.isSummerTime > math.MinInt8 {
		d.isSummerTime--
	}

	if frame.Bits&timezoneChangeBit != 0 {
		if d.timeZoneChangeAnnounced < math.MaxUint8 {
			d.timeZoneChangeAnnounced++
		}
	} else if d.timeZoneChangeAnnounced > 0 {
		d.timeZoneChangeAnnounced--
	}
	return true
}

// Resolve returns the UTC offset to apply to (hour, minute) and the
// corrected hour. DCF77 broadcasts the new local time starting exactly at
// the transition, but the BCD decoders' binning correlators lag one
// minute behind a fast-changing field, so the hour they report on the
// transition's first minute is off by one; Resolve applies the one-shot
// correction and flips isSummerTime to match.
func (d *Decoder) Resolve(hour, minute uint8) (offset time.Duration, correctedHour uint8) {
	correctedHour = hour
	if minute == 0 && d.timeZoneChangeAnnounced > 0 {
		switch hour {
		case 3:
			if d.isSummerTime > 0 {
				// First minute of winter time: should have read 2.
				correctedHour = 2
				d.isSummerTime = -1
			}
		case 2:
			if d.isSummerTime < 0 {
				// First minute of summer time: should have read 3.
				correctedHour = 3
				d.isSummerTime = 1
			}
		}
	}

	if d.isSummerTime > 0 {
		offset = 2 * time.Hour
	} else {
		offset = time.Hour
	}
	return offset, correctedHour
}
