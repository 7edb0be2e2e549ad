package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLocalToEpoch_ScenarioS1 checks frame 0x623a4843141ae6, decoded as
// Sat 2018-11-24 02:18 CET, converts to the expected Unix epoch.
func TestLocalToEpoch_ScenarioS1(t *testing.T) {
	got := LocalToEpoch(18, 11, 24, 2, 18, time.Hour)
	assert.Equal(t, int64(1543022280), got)
}

func TestLocalToEpoch_CESTOffset(t *testing.T) {
	got := LocalToEpoch(20, 6, 1, 14, 0, 2*time.Hour)
	want := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, want, got)
}

func TestNextMinuteFields_RollsOverHour(t *testing.T) {
	minute, hour, day, month, year := NextMinuteFields(18, 11, 24, 2, 59)
	assert.Equal(t, uint8(0), minute)
	assert.Equal(t, uint8(3), hour)
	assert.Equal(t, uint8(24), day)
	assert.Equal(t, uint8(11), month)
	assert.Equal(t, uint8(18), year)
}

func TestNextMinuteFields_RollsOverYear(t *testing.T) {
	minute, hour, day, month, year := NextMinuteFields(18, 12, 31, 23, 59)
	assert.Equal(t, uint8(0), minute)
	assert.Equal(t, uint8(0), hour)
	assert.Equal(t, uint8(1), day)
	assert.Equal(t, uint8(1), month)
	assert.Equal(t, uint8(19), year)
}
