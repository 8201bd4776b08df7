package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"100", 100, false},
		{"100MB", 100 * MegaByte, false},
		{"1.5GB", int64(1.5 * float64(GigaByte)), false},
		{"512KB", 512 * KiloByte, false},
		{"64 KB", 64 * KiloByte, false},
		{"2TB", 2 * TeraByte, false},
		{"", 0, true},
		{"abc", 0, true},
		{"10XB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDataSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDataSizeWithDefault(t *testing.T) {
	assert.Equal(t, int64(42), ParseDataSizeWithDefault("", 42))
	assert.Equal(t, int64(42), ParseDataSizeWithDefault("bogus", 42))
	assert.Equal(t, 10*MegaByte, ParseDataSizeWithDefault("10MB", 42))
}

func TestFormatDataSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{150000, "146.48 KB"},
		{5 * MegaByte, "5.00 MB"},
		{-1, "0 B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDataSize(tt.bytes))
	}
}
