package manifest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// JSONLDecoder decodes manifests shipped as newline-delimited JSON objects
type JSONLDecoder struct {
	opts *Options
}

// NewJSONLDecoder creates a new JSONL decoder
func NewJSONLDecoder(opts *Options) *JSONLDecoder {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONLDecoder{opts: opts}
}

// Decode reads newline-delimited JSON manifest data from a reader
func (d *JSONLDecoder) Decode(ctx context.Context, r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rows []Row
	totalRows := 0
	skippedRows := 0
	columns := make(map[string]bool)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		totalRows++

		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			// Skip malformed lines but continue decoding
			skippedRows++
			continue
		}

		if d.opts.SkipEmptyRows && len(obj) == 0 {
			skippedRows++
			continue
		}

		row := make(Row, len(obj))
		for key, value := range obj {
			columns[key] = true
			row[key] = stringifyValue(value)
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}

	return &Result{
		Rows:        rows,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     sortedKeys(columns),
		Format:      "JSONL",
	}, nil
}

// Extensions returns the file extensions this decoder handles
func (d *JSONLDecoder) Extensions() []string {
	return []string{".jsonl", ".ndjson"}
}
