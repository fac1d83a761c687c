package manifest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVDecoder decodes comma-separated manifests
type CSVDecoder struct {
	opts *Options
}

// NewCSVDecoder creates a new CSV decoder
func NewCSVDecoder(opts *Options) *CSVDecoder {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &CSVDecoder{opts: opts}
}

// Decode reads CSV manifest data from a reader
func (d *CSVDecoder) Decode(ctx context.Context, r io.Reader) (*Result, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = d.opts.TrimWhitespace
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields per record

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if d.opts.TrimWhitespace {
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	var rows []Row
	totalRows := 0
	skippedRows := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed rows but continue decoding
			totalRows++
			skippedRows++
			continue
		}

		totalRows++

		if d.opts.SkipEmptyRows && isEmptyRow(record) {
			skippedRows++
			continue
		}

		rows = append(rows, rowFromCells(header, record, d.opts.TrimWhitespace))
	}

	return &Result{
		Rows:        rows,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     header,
		Format:      "CSV",
	}, nil
}

// Extensions returns the file extensions this decoder handles
func (d *CSVDecoder) Extensions() []string {
	return []string{".csv"}
}

// rowFromCells zips a header with one line of cells; missing cells become
// empty strings
func rowFromCells(header, cells []string, trim bool) Row {
	row := make(Row, len(header))
	for i, col := range header {
		value := ""
		if i < len(cells) {
			value = cells[i]
			if trim {
				value = strings.TrimSpace(value)
			}
		}
		row[col] = value
	}
	return row
}

// isEmptyRow checks if a row contains only empty strings
func isEmptyRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
