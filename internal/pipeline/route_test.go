package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name      string
		period    string
		wantMode  Mode
		wantStart string
		wantEnd   string
	}{
		{"year", "2022", ModeHistorical, "2022-01-01", "2022-12-31"},
		{"recent", "recent", ModeRecent, "", ""},
		{"empty", "", ModeRecent, "", ""},
		{"digits are concatenated", "year 20-22", ModeHistorical, "2022-01-01", "2022-12-31"},
		{"malformed year is not validated", "fy20221", ModeHistorical, "20221-01-01", "20221-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Route(tt.period)
			assert.Equal(t, tt.wantMode, got.Mode)
			if tt.wantMode == ModeRecent {
				assert.Nil(t, got.Window)
				return
			}
			require.NotNil(t, got.Window)
			assert.Equal(t, tt.wantStart, got.Window.Start)
			assert.Equal(t, tt.wantEnd, got.Window.End)
		})
	}
}
