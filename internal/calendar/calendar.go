// Package calendar turns the decoded local wall-clock fields of a DCF77
// minute into a Unix epoch time, and predicts the fields of the minute
// about to be decoded so each BcdDecoder can be told what to expect.
package calendar

import "time"

// LocalToEpoch converts a broadcast local wall-clock reading (two-digit
// year, 1-based month, day of month, hour, minute) plus the UTC offset
// in effect at that instant into a Unix epoch time.
func LocalToEpoch(year2, month, day, hour, minute uint8, offset time.Duration) int64 {
	local := time.Date(2000+int(year2), time.Month(month), int(day), int(hour), int(minute), 0, 0, time.UTC)
	return local.Unix() - int64(offset/time.Second)
}

// NextMinuteFields returns the minute/hour/day/month/two-digit-year
// values that will be in effect one minute after the given local
// wall-clock reading. The receiver feeds these into each BcdDecoder's
// SetPrediction so a correctly-decoded minute keeps the lock through the
// next minute's rollover (e.g. minutes wrapping into the next hour). No
// DST rule is applied: across a CET/CEST transition the result is the
// plain reading plus one minute, not the transmitted next local time.
func NextMinuteFields(year2, month, day, hour, minute uint8) (nMinute, nHour, nDay, nMonth, nYear2 uint8) {
	local := time.Date(2000+int(year2), time.Month(month), int(day), int(hour), int(minute), 0, 0, time.UTC)
	next := local.Add(time.Minute)
	return uint8(next.Minute()), uint8(next.Hour()), uint8(next.Day()), uint8(next.Month()), uint8(next.Year() - 2000)
}
