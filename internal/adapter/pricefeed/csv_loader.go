package pricefeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/simaogato/replay-broker/internal/domain"
)

// LoadCSVFile reads a historical price file of (time, price) rows.
// Times are milliseconds since the UNIX epoch. An optional header row is skipped.
func LoadCSVFile(path string) (*domain.PriceSeries, error) {
	// #nosec G304 -- file path is operator provided via configuration.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer file.Close()

	series, err := LoadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("load price file %s: %w", path, err)
	}
	return series, nil
}

// LoadCSV reads (time, price) rows from r and builds the price series
func LoadCSV(r io.Reader) (*domain.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read csv record: %v", domain.ErrMalformedInput, err)
		}

		if len(rows) == 0 && isHeader(record) {
			continue
		}
		rows = append(rows, record)
	}

	return domain.LoadPriceSeries(rows)
}

// isHeader reports whether the first record names its columns instead of holding a sample
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	return err != nil
}
