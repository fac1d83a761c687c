package manifest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelDecoder decodes spreadsheet manifests (.xlsx, .xls). Only the first
// sheet is read.
type ExcelDecoder struct {
	opts *Options
}

// NewExcelDecoder creates a new Excel decoder
func NewExcelDecoder(opts *Options) *ExcelDecoder {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &ExcelDecoder{opts: opts}
}

// Decode reads spreadsheet manifest data from a reader
func (d *ExcelDecoder) Decode(ctx context.Context, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in spreadsheet")
	}

	allRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	if len(allRows) == 0 {
		return &Result{Format: "XLSX"}, nil
	}

	header := allRows[0]
	if d.opts.TrimWhitespace {
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	var rows []Row
	totalRows := 0
	skippedRows := 0

	for rowIdx := 1; rowIdx < len(allRows); rowIdx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cells := allRows[rowIdx]
		totalRows++

		if d.opts.SkipEmptyRows && isEmptyRow(cells) {
			skippedRows++
			continue
		}

		rows = append(rows, rowFromCells(header, cells, d.opts.TrimWhitespace))
	}

	return &Result{
		Rows:        rows,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     header,
		Format:      "XLSX",
	}, nil
}

// Extensions returns the file extensions this decoder handles
func (d *ExcelDecoder) Extensions() []string {
	return []string{".xlsx", ".xls"}
}
