package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("07:05")
	assert.NoError(t, err)
	assert.Equal(t, 7, tod.Hour())
	assert.Equal(t, 5, tod.Minute())

	tod, err = ParseTimeOfDay("23:59")
	assert.NoError(t, err)
	assert.Equal(t, "23:59", tod.Clock())
}

func TestParseTimeOfDayRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"", "7", "24:00", "12:60", "ab:cd", "-1:30"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTimeOfDayAddWrapsMidnight(t *testing.T) {
	late, _ := ParseTimeOfDay("23:50")
	assert.Equal(t, "00:05", late.Add(15).Clock())

	early, _ := ParseTimeOfDay("00:10")
	assert.Equal(t, "23:55", early.Add(-15).Clock())
}

func TestTimeOfDayAddRollsMinuteOverflowIntoHour(t *testing.T) {
	tod, _ := ParseTimeOfDay("07:55")
	assert.Equal(t, "08:07", tod.Add(12).Clock())
}

func TestTimeOfDayTwelveHourFormat(t *testing.T) {
	cases := map[string]string{
		"00:15": "12:15 AM",
		"07:05": "7:05 AM",
		"12:00": "12:00 PM",
		"15:42": "3:42 PM",
	}
	for in, want := range cases {
		tod, err := ParseTimeOfDay(in)
		assert.NoError(t, err)
		assert.Equal(t, want, tod.String())
	}
}
