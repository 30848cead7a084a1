package pricefeed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/replay-broker/internal/domain"
)

func TestLoadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "with header", input: "time,currentPrice\n1000,100.0\n1075,101.0\n1150,99.5\n"},
		{name: "without header", input: "1000,100.0\n1075,101.0\n1150,99.5"},
		{name: "crlf and spaces", input: "time, currentPrice\r\n1000, 100.0\r\n1075, 101.0\r\n1150, 99.5\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := LoadCSV(strings.NewReader(tt.input))

			require.NoError(t, err)
			assert.Equal(t, 3, series.Len())
			assert.Equal(t, int64(1000), series.FirstTimestamp())
			assert.Equal(t, int64(75), series.Interval())

			price, err := series.Lookup(1150)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString("99.5").Equal(price))
		})
	}
}

func TestLoadCSV_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "header only", input: "time,currentPrice\n"},
		{name: "bad price", input: "1000,abc\n1075,101\n"},
		{name: "bad timestamp after header", input: "time,price\n1000,1\nlater,2\n"},
		{name: "unterminated quote", input: "1000,\"100\n1075,101\n"},
		{name: "irregular interval", input: "1000,1\n1075,1\n1200,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, domain.ErrMalformedInput)
		})
	}
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,currentPrice\n0,10\n60000,11\n"), 0o644))

	series, err := LoadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), series.Interval())

	_, err = LoadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
