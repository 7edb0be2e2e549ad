// Package phase implements the PhaseDetector stage: it locates the 10ms
// bin where each second's pulse begins inside the 100-bin-per-second
// cyclic correlator, then samples a per-second pulse classifier once the
// phase lock is established.
package phase

import (
	"dcf77/internal/dsp"
	"dcf77/internal/symbol"
)

const (
	binCount      = 100
	lockThreshold = 75

	// bins per 100ms template region, expressed directly since one bin is
	// already one 10ms symbol period.
	pulseBodyBins = 10
	eitherBins    = 10

	// classifier window lengths, in 10ms ticks.
	bodyTicks = 11 // [-10ms, +100ms) referenced to pulseStartBin
	tailTicks = 10 // [+100ms, +200ms)

	bodySyncThreshold = -10
	tailLongThreshold = 6
	tailShortThreshold = -6
)

type classifierState int

const (
	stateIdle classifierState = iota
	stateBody
	stateTail
)

// SecondEvent is the per-second callback contract: invoked from averager
// context once a pulse (or the absence of one) has been classified.
type SecondEvent func(pulse symbol.Pulse)

// Detector is the PhaseDetector stage. It owns a 100-entry ScoreBin (one
// bin per 10ms of the second) plus a parallel correlation array, and
// drives the per-second pulse classifier once phase lock is acquired.
type Detector struct {
	bin           *dsp.ScoreBin
	correlation   [binCount]int32
	activeBin     int
	pulseStartBin int

	state       classifierState
	pulseCtr    int
	ticksInBody int
	pendingSync bool
	tailCtr     int
	ticksInTail int

	onSecond SecondEvent
}

// NewDetector constructs a PhaseDetector with a cold-start lock state.
func NewDetector() *Detector {
	return &Detector{
		bin:           dsp.NewScoreBin(binCount, -128),
		pulseStartBin: dsp.Unset,
	}
}

// OnSecond registers the callback fired once per second from averager
// context with the classified pulse.
func (d *Detector) OnSecond(fn SecondEvent) {
	d.onSecond = fn
}

// Locked reports whether the phase lock has been acquired at least once.
func (d *Detector) Locked() bool {
	return d.pulseStartBin != dsp.Unset
}

// PulseStartBin returns the current pulse-start bin and whether it is
// meaningful yet.
func (d *Detector) PulseStartBin() (int, bool) {
	if d.pulseStartBin == dsp.Unset {
		return 0, false
	}
	return d.pulseStartBin, true
}

// Process feeds one 10ms Symbol into the detector. It advances the
// correlator, updates the phase lock, and — while locked — samples the
// pulse classifier, firing the registered SecondEvent once a full
// second's pulse has been classified.
func (d *Detector) Process(sym symbol.Symbol) {
	d.activeBin = dsp.Wrap(d.activeBin+1, binCount)

	switch sym {
	case symbol.High:
		d.bin.Add(d.activeBin, 1)
	case symbol.Low:
		d.bin.Add(d.activeBin, -1)
	}

	if d.correlate() {
		d.sampleClassifier(sym)
	}
}

// correlate recomputes the correlation score for the active bin against
// the template "HIGH for 100ms, then either state for 100ms, then LOW for
// 800ms" and re-tracks pulseStartBin toward the best-scoring bin. Returns
// true once a candidate bin clears LOCK_THRESHOLD.
func (d *Detector) correlate() bool {
	var sum int32
	for i := 0; i < pulseBodyBins; i++ {
		sum += int32(d.bin.GetUnsigned(dsp.Wrap(d.activeBin+i, binCount)))
	}
	sum <<= 1
	for i := pulseBodyBins; i < pulseBodyBins+eitherBins; i++ {
		sum += int32(d.bin.GetUnsigned(dsp.Wrap(d.activeBin+i, binCount)))
	}
	d.correlation[d.activeBin] = sum

	var maxCorrelation int32 = lockThreshold
	candidate := dsp.Unset
	for i, c := range d.correlation {
		if c > maxCorrelation {
			maxCorrelation = c
			candidate = i
		}
	}
	if candidate == dsp.Unset {
		return false
	}

	if d.pulseStartBin == dsp.Unset {
		d.pulseStartBin = candidate
		return true
	}

	// Slew-rate limiter: move pulseStartBin by exactly one position per
	// 10ms call, in whichever direction shortens the circular distance to
	// the candidate. This prevents a single noisy tick from yanking an
	// established lock.
	if dsp.Wrap(d.pulseStartBin-candidate, binCount) > binCount/2 {
		d.pulseStartBin = dsp.Wrap(d.pulseStartBin+1, binCount)
	} else if d.pulseStartBin != candidate {
		d.pulseStartBin = dsp.Wrap(d.pulseStartBin-1, binCount)
	}
	return true
}

func symbolValue(sym symbol.Symbol) int {
	switch sym {
	case symbol.High:
		return 1
	case symbol.Low:
		return -1
	default:
		return 0
	}
}

// sampleClassifier runs the three-state pulse classifier referenced to
// pulseStartBin: idle until the active bin enters the pulse window, then
// accumulate the pulse body, then the tail, then emit a Pulse.
func (d *Detector) sampleClassifier(sym symbol.Symbol) {
	switch d.state {
	case stateIdle:
		dist := dsp.Wrap(d.activeBin-d.pulseStartBin, binCount)
		// window is [pulseStartBin-10ms, pulseStartBin+100ms): that's
		// dist == binCount-1 (one bin early) or dist in [0, 9].
		if dist == binCount-1 || dist <= 9 {
			d.state = stateBody
			d.pulseCtr = symbolValue(sym)
			d.ticksInBody = 1
		}
	case stateBody:
		d.pulseCtr += symbolValue(sym)
		d.ticksInBody++
		if d.ticksInBody >= bodyTicks {
			isSync := d.pulseCtr < bodySyncThreshold
			d.state = stateTail
			d.tailCtr = 0
			d.ticksInTail = 0
			d.pendingSync = isSync
		}
	case stateTail:
		d.tailCtr += symbolValue(sym)
		d.ticksInTail++
		if d.ticksInTail >= tailTicks {
			class := symbol.PulseUnknown
			switch {
			case d.tailCtr > tailLongThreshold:
				class = symbol.PulseLong
			case d.tailCtr < tailShortThreshold:
				class = symbol.PulseShort
			}
			d.state = stateIdle
			if d.onSecond != nil {
				d.onSecond(symbol.Pulse{Class: class, IsSyncCandidate: d.pendingSync})
			}
		}
	}
}
