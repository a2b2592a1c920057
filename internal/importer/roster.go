// Package importer parses uploaded roster files into header-keyed records.
// CSV and XLSX uploads produce identical records, so everything downstream of
// the parser is format-agnostic.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat marks an upload with an extension the parser does not
// handle
var ErrUnsupportedFormat = errors.New("unsupported roster format")

// ParseRoster dispatches on the file extension. Supported formats are .csv
// and .xlsx.
func ParseRoster(filename string, r io.Reader) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// ParseCSV reads a roster from CSV. The first row is the header; header names
// are normalized to snake_case keys. Blank rows are dropped.
func ParseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("roster is empty")
		}
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}
	keys := normalizeHeader(header)

	records := []map[string]string{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read roster row: %w", err)
		}
		if record, ok := buildRecord(keys, row); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// ParseXLSX reads a roster from the first sheet of an XLSX workbook. The
// first row is the header; blank rows are dropped.
func ParseXLSX(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}

	keys := normalizeHeader(rows[0])
	records := []map[string]string{}
	for _, row := range rows[1:] {
		if record, ok := buildRecord(keys, row); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// normalizeHeader turns display headers like "Enrollment Number" into keys
// like "enrollment_number"
func normalizeHeader(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		keys[i] = key
	}
	return keys
}

// buildRecord zips a row against the header keys, skipping rows whose cells
// are all empty. Short rows are padded with empty values.
func buildRecord(keys, row []string) (map[string]string, bool) {
	record := make(map[string]string, len(keys))
	empty := true
	for i, key := range keys {
		if key == "" {
			continue
		}
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		if value != "" {
			empty = false
		}
		record[key] = value
	}
	if empty {
		return nil, false
	}
	return record, true
}
