package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100", "100.00"},
		{"100.5", "100.50"},
		{"0.125", "0.12"},
		{"0.135", "0.14"},
		{"19.999", "20.00"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := Normalize(decimal.RequireFromString(tc.in))
			assert.Equal(t, tc.want, Format(got))
		})
	}
}

func TestPositive(t *testing.T) {
	got, err := Positive(decimal.RequireFromString("30"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("30.00")))

	for _, raw := range []string{"0", "-1", "0.004"} {
		if _, err := Positive(decimal.RequireFromString(raw)); !errors.Is(err, ErrAmountNotPositive) {
			t.Fatalf("expected ErrAmountNotPositive for %s, got %v", raw, err)
		}
	}
}

func TestParsePositive(t *testing.T) {
	got, err := ParsePositive(" 1000.456 ")
	require.NoError(t, err)
	assert.Equal(t, "1000.46", Format(got))

	_, err = ParsePositive("")
	assert.ErrorIs(t, err, ErrAmountRequired)

	_, err = ParsePositive("ten naira")
	assert.Error(t, err)

	_, err = ParsePositive("-5")
	assert.ErrorIs(t, err, ErrAmountNotPositive)
}
