package timetext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"6 pm", "18:00", true},
		{"6pm", "18:00", true},
		{"6:30pm", "18:30", true},
		{"6:30 PM", "18:30", true},
		{"12am", "00:00", true},
		{"12:15am", "00:15", true},
		{"12pm", "12:00", true},
		{"15:30", "15:30", true},
		{"6", "06:00", true},
		{"23", "23:00", true},
		{"morning", "10:00", true},
		{"afternoon", "14:00", true},
		{"evening", "18:00", true},
		{"night", "19:30", true},
		{"", "", false},
		{"25:00", "", false},
		{"whenever", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestInferTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"am pm in sentence", "book me for 6:30 pm please", "18:30", true},
		{"24h in sentence", "how about 15:30", "15:30", true},
		{"bucket", "tomorrow evening works", "18:00", true},
		{"contextual hour", "at 6 would be great", "06:00", true},
		{"bare number message", "6", "06:00", true},
		{"random number not a time", "I need 2 services", "", false},
		{"no time at all", "a facial please", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMentionsTime(t *testing.T) {
	assert.True(t, MentionsTime("around 6"))
	assert.True(t, MentionsTime("18:45"))
	assert.True(t, MentionsTime("morning"))
	assert.False(t, MentionsTime("give me 2 services"))
	assert.False(t, MentionsTime(""))
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("6:30 pm")
	require.NoError(t, err)
	assert.Equal(t, 18, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseClock("not a time")
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "6:00 PM", FormatTime("18:00"))
	assert.Equal(t, "12:05 AM", FormatTime("00:05"))
	assert.Equal(t, "12:00 PM", FormatTime("12:00"))
	assert.Equal(t, "9:30 AM", FormatTime("09:30"))
	assert.Equal(t, "garbage", FormatTime("garbage"))
}
