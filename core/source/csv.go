package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names recognized in a setpoint CSV file. real_power is required,
// the others are optional.
const (
	colRealPower     = "real_power"
	colReactivePower = "reactive_power"
	colCustomerID    = "customerid"
	colNode          = "node"
)

// CSVSource reads one setpoint row per epoch from a CSV file. The first
// record must be a header naming at least the real_power column.
type CSVSource struct {
	f    *os.File
	r    *csv.Reader
	cols map[string]int
}

// OpenCSV opens the file and parses its header. A zero delimiter defaults to
// a comma.
func OpenCSV(path string, delimiter rune) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open setpoint csv: %w", err)
	}
	r := csv.NewReader(f)
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols[colRealPower]; !ok {
		f.Close()
		return nil, fmt.Errorf("setpoint csv is missing the %s column", colRealPower)
	}
	return &CSVSource{f: f, r: r, cols: cols}, nil
}

// Next returns the setpoint for the next epoch, or ErrExhausted once the
// file runs out of rows.
func (s *CSVSource) Next() (Row, error) {
	rec, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return Row{}, ErrExhausted
	}
	if err != nil {
		return Row{}, fmt.Errorf("read csv row: %w", err)
	}

	var row Row
	row.RealPowerKW, err = strconv.ParseFloat(strings.TrimSpace(rec[s.cols[colRealPower]]), 64)
	if err != nil {
		return Row{}, fmt.Errorf("parse %s: %w", colRealPower, err)
	}
	if i, ok := s.cols[colReactivePower]; ok && strings.TrimSpace(rec[i]) != "" {
		row.ReactivePowerKW, err = strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return Row{}, fmt.Errorf("parse %s: %w", colReactivePower, err)
		}
	}
	if i, ok := s.cols[colCustomerID]; ok {
		row.CustomerID = strings.TrimSpace(rec[i])
		row.HasCustomerID = true
	}
	if i, ok := s.cols[colNode]; ok {
		row.Node = strings.TrimSpace(rec[i])
		row.HasNode = true
	}
	return row, nil
}

// Close closes the underlying file.
func (s *CSVSource) Close() error { return s.f.Close() }
