package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name        string
		minor       int64
		currency    Currency
		shouldError bool
	}{
		{name: "valid money", minor: 1099, currency: INR},
		{name: "lower case currency", minor: 1, currency: "usd"},
		{name: "negative amount", minor: -1, currency: INR, shouldError: true},
		{name: "invalid currency", minor: 10, currency: "XXX", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoney(tt.minor, tt.currency)
			if tt.shouldError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.minor, m.Minor())
		})
	}
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("125.50", "INR")
	require.NoError(t, err)
	assert.Equal(t, int64(12550), m.Minor())
	assert.Equal(t, "INR 125.50", m.String())

	_, err = NewMoneyFromString("1.005", "INR")
	assert.Error(t, err)
	_, err = NewMoneyFromString("abc", "INR")
	assert.Error(t, err)
}

func TestPercentCeilOf(t *testing.T) {
	tests := []struct {
		rate   string
		amount int64
		want   int64
	}{
		{"25", 10000, 2500},
		{"25", 10001, 2501},
		{"3.30", 10000, 330},
		{"3.30", 2500, 83}, // 82.5 rounds up
		{"15", 7500, 1125},
		{"15", 1, 1},
		{"0", 999, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MustPercent(tt.rate).CeilOf(tt.amount), "%s of %d", tt.rate, tt.amount)
	}
}

func TestParsePercent(t *testing.T) {
	_, err := ParsePercent("-1")
	assert.Error(t, err)
	_, err = ParsePercent("100.01")
	assert.Error(t, err)
	_, err = ParsePercent("abc")
	assert.Error(t, err)
	p, err := ParsePercent(" 80 ")
	require.NoError(t, err)
	assert.Equal(t, "80%", p.String())
}

func TestRatioReached(t *testing.T) {
	eighty := MustPercent("80")
	assert.True(t, eighty.RatioReached(4200, 5000))
	assert.True(t, eighty.RatioReached(4000, 5000))
	assert.False(t, eighty.RatioReached(3999, 5000))
	assert.False(t, eighty.RatioReached(100, 0))
	assert.True(t, MustPercent("100").RatioReached(5000, 5000))
	assert.True(t, WholePercent(80).RatioReached(4200, 5000))
}

func TestMinorToMajor(t *testing.T) {
	assert.Equal(t, "12.5", MinorToMajor(1250).String())
	assert.Equal(t, "0.07", MinorToMajor(7).String())
}

func TestAverage(t *testing.T) {
	assert.Equal(t, int64(0), Average(100, 0))
	assert.Equal(t, int64(334), Average(1001, 3))
	assert.Equal(t, int64(2100), Average(4200, 2))
}
