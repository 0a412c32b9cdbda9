package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"26,879/-", 26879, true},
		{"Rs. 1500", 1500, true},
		{"₹ 2,50,000", 250000, true},
		{"2.5", 2.5, true},
		{" 12 INR ", 12, true},
		{"", 0, false},
		{"twelve", 0, false},
		{"-5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 0.001, tt.in)
	}
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "0/-", FormatRupees(0))
	assert.Equal(t, "950/-", FormatRupees(950))
	assert.Equal(t, "26,879/-", FormatRupees(26879))
	assert.Equal(t, "1,500.50/-", FormatRupees(1500.5))
	assert.Equal(t, "3,000/-", FormatRupees(2999.999))
}

func TestAmountInWords(t *testing.T) {
	tests := map[float64]string{
		0:         "Zero",
		15:        "Fifteen",
		100:       "One Hundred",
		26879:     "Twenty-Six Thousand Eight Hundred Seventy-Nine",
		29546:     "Twenty-Nine Thousand Five Hundred Forty-Six",
		100000:    "One Lakh",
		1234567:   "Twelve Lakh Thirty-Four Thousand Five Hundred Sixty-Seven",
		250000000: "Twenty-Five Crore",
		12.5:      "Twelve and Fifty Paise",
	}
	for in, want := range tests {
		assert.Equal(t, want, AmountInWords(in), "%v", in)
	}
}
