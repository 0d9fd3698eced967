package business

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testConfig() *Config {
	cfg := &Config{
		Name:          "Glow Salon",
		Timezone:      "UTC",
		BusinessHours: Hours{Start: "09:00", End: "19:00"},
		SameDayCutoff: "17:00",
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		date      string
		time      string
		wantOK    bool
		wantField string
	}{
		{"valid future slot", "2026-03-11", "15:00", true, ""},
		{"opening boundary inclusive", "2026-03-11", "09:00", true, ""},
		{"closing boundary inclusive", "2026-03-11", "19:00", true, ""},
		{"bad date", "soonish", "15:00", false, "date"},
		{"bad time", "2026-03-11", "sometime", false, "time"},
		{"past date", "2026-03-09", "15:00", false, "date"},
		{"same-day before cutoff", "2026-03-10", "15:00", false, "time"},
		{"same-day after cutoff", "2026-03-10", "18:00", true, ""},
		{"before opening", "2026-03-11", "08:30", false, "time"},
		{"after closing", "2026-03-11", "19:30", false, "time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, field, msg := cfg.Validate(tt.date, tt.time, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantField, field)
			if !tt.wantOK {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestValidateChecksDateBeforeTime(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Both fields broken: the date failure must win so the caller clears
	// and re-asks the right field first.
	ok, field, _ := cfg.Validate("garbage", "garbage", now)
	assert.False(t, ok)
	assert.Equal(t, "date", field)
}
