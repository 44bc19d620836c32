package units

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTimezoneValid(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		expected bool
	}{
		{"valid UTC", "UTC", true},
		{"valid US Central", "America/Chicago", true},
		{"invalid", "Invalid/Timezone", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTimezoneValid(tt.timezone))
		})
	}
}

func TestConvertTime(t *testing.T) {
	utc := time.Date(2023, time.May, 1, 21, 30, 0, 0, time.UTC)

	same, err := ConvertTime(utc, "UTC")
	require.NoError(t, err)
	assert.Equal(t, utc, same)

	same, err = ConvertTime(utc, "")
	require.NoError(t, err)
	assert.Equal(t, utc, same)

	central, err := ConvertTime(utc, "America/Chicago")
	require.NoError(t, err)
	assert.True(t, utc.Equal(central))
	assert.Equal(t, 16, central.Hour())

	_, err = ConvertTime(utc, "Invalid/Timezone")
	assert.Error(t, err)
}
