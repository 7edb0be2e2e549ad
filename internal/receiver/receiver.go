// Package receiver wires the phase, seconds, BCD, and timezone decode
// stages together into a complete DCF77 pipeline, turning a 1kHz raw
// pin-sample stream into a Unix epoch time once a minute.
package receiver

import (
	"github.com/sirupsen/logrus"

	"dcf77/internal/bcd"
	"dcf77/internal/calendar"
	"dcf77/internal/phase"
	"dcf77/internal/seconds"
	"dcf77/internal/symbol"
	"dcf77/internal/timezone"
)

// Field bit layouts for the five BCD fields of a DCF77 minute frame.
// Values are the ones the original reference firmware hard-codes; see
// SPEC_FULL.md section 11.
const (
	minutesStartBit, minutesWidth, minutesParity, minutesLow, minutesHigh, minutesLock = 21, 7, true, 0, 59, 4
	hoursStartBit, hoursWidth, hoursParity, hoursLow, hoursHigh, hoursLock             = 29, 6, true, 0, 23, 3
	daysStartBit, daysWidth, daysParity, daysLow, daysHigh, daysLock                   = 36, 6, false, 1, 31, 3
	monthsStartBit, monthsWidth, monthsParity, monthsLow, monthsHigh, monthsLock       = 45, 5, false, 1, 12, 2
	yearsStartBit, yearsWidth, yearsParity, yearsLow, yearsHigh, yearsLock             = 50, 8, false, 0, 99, 4
)

// MinuteEvent is invoked once a minute with the decoded Unix epoch time,
// once every field decoder is locked. dateParityValid is the frame's own
// date-parity cross-check, surfaced for the caller to use as it sees fit
// (e.g. flagging a reading) rather than as a gate on emission: a single
// noisy frame shouldn't blank out a clock the field decoders otherwise
// trust from prior minutes.
type MinuteEvent func(epoch int64, dateParityValid bool)

// Receiver owns the full pipeline: one Averager, one PhaseDetector, one
// SecondsDecoder, five BcdDecoders (minute/hour/day/month/year), and a
// TimezoneDecoder.
type Receiver struct {
	averager *symbol.Averager
	detector *phase.Detector
	seconds  *seconds.Decoder
	minutes  *bcd.Decoder
	hours    *bcd.Decoder
	days     *bcd.Decoder
	months   *bcd.Decoder
	years    *bcd.Decoder
	tz       *timezone.Decoder
	logger   *logrus.Logger
	onMinute MinuteEvent
}

// New constructs a Receiver. invert is forwarded to the Averager for
// receiver modules that idle high.
func New(invert bool, logger *logrus.Logger) *Receiver {
	r := &Receiver{
		averager: symbol.NewAverager(invert),
		detector: phase.NewDetector(),
		seconds:  seconds.NewDecoder(),
		minutes:  bcd.NewDecoder(minutesStartBit, minutesWidth, minutesParity, minutesLow, minutesHigh, minutesLock),
		hours:    bcd.NewDecoder(hoursStartBit, hoursWidth, hoursParity, hoursLow, hoursHigh, hoursLock),
		days:     bcd.NewDecoder(daysStartBit, daysWidth, daysParity, daysLow, daysHigh, daysLock),
		months:   bcd.NewDecoder(monthsStartBit, monthsWidth, monthsParity, monthsLow, monthsHigh, monthsLock),
		years:    bcd.NewDecoder(yearsStartBit, yearsWidth, yearsParity, yearsLow, yearsHigh, yearsLock),
		tz:       timezone.NewDecoder(),
		logger:   logger,
	}
	r.detector.OnSecond(r.handlePulse)
	return r
}

// OnMinute registers the callback fired once a minute with the decoded
// Unix epoch time.
func (r *Receiver) OnMinute(fn MinuteEvent) {
	r.onMinute = fn
}

// Sample feeds one raw 1ms boolean pin sample through the averager and,
// every ten samples, through the rest of the pipeline.
func (r *Receiver) Sample(raw bool) {
	sym, emitted := r.averager.Sample(raw)
	if !emitted {
		return
	}
	r.detector.Process(sym)
}

// handlePulse is the PhaseDetector's per-second callback: it shifts the
// new pulse into the seconds frame and, on the frame boundary (the
// tracked second rolling over to 59), tries to finish decoding the
// completed minute.
func (r *Receiver) handlePulse(p symbol.Pulse) {
	r.seconds.Update(p)

	second, ok := r.seconds.CurrentSecond()
	if !ok || second != 59 {
		return
	}
	frame, ok := r.seconds.PreviousFrame()
	if !ok {
		return
	}
	r.finishMinute(frame)
}

// finishMinute runs every BCD field and the timezone decoder against the
// completed frame, and — if every field is locked — computes the Unix
// epoch time and seeds next minute's predictions. A failed date parity
// check is logged and reported to the callback but does not stop the
// emission.
func (r *Receiver) finishMinute(frame seconds.Frame) {
	minutesOK := r.minutes.Update(frame)
	hoursOK := r.hours.Update(frame)
	daysOK := r.days.Update(frame)
	monthsOK := r.months.Update(frame)
	yearsOK := r.years.Update(frame)
	tzOK := r.tz.Update(frame)
	if !(minutesOK && hoursOK && daysOK && monthsOK && yearsOK && tzOK) {
		r.logger.Debug("frame too short for one or more fields, skipping minute")
		return
	}

	dateParityValid := frame.DateParityValid()
	if !dateParityValid {
		r.logger.Debug("date parity check failed, emitting minute anyway")
	}

	minute, ok := r.minutes.GetValue()
	if !ok {
		return
	}
	hour, ok := r.hours.GetValue()
	if !ok {
		return
	}
	day, ok := r.days.GetValue()
	if !ok {
		return
	}
	month, ok := r.months.GetValue()
	if !ok {
		return
	}
	year, ok := r.years.GetValue()
	if !ok {
		return
	}

	offset, correctedHour := r.tz.Resolve(hour, minute)
	epoch := calendar.LocalToEpoch(year, month, day, correctedHour, minute, offset)

	r.logger.WithFields(logrus.Fields{
		"year": year, "month": month, "day": day,
		"hour": correctedHour, "minute": minute, "epoch": epoch,
		"date_parity_valid": dateParityValid,
	}).Info("decoded DCF77 minute")

	nMinute, nHour, nDay, nMonth, nYear := calendar.NextMinuteFields(year, month, day, correctedHour, minute)
	r.minutes.SetPrediction(nMinute)
	r.hours.SetPrediction(nHour)
	r.days.SetPrediction(nDay)
	r.months.SetPrediction(nMonth)
	r.years.SetPrediction(nYear)

	if r.onMinute != nil {
		r.onMinute(epoch, dateParityValid)
	}
}
