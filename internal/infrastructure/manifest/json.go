package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// JSONDecoder decodes manifests shipped as a JSON array of objects
type JSONDecoder struct {
	opts *Options
}

// NewJSONDecoder creates a new JSON decoder
func NewJSONDecoder(opts *Options) *JSONDecoder {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONDecoder{opts: opts}
}

// Decode reads a JSON array manifest from a reader
func (d *JSONDecoder) Decode(ctx context.Context, r io.Reader) (*Result, error) {
	var objects []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&objects); err != nil {
		return nil, fmt.Errorf("failed to decode JSON manifest: %w", err)
	}

	var rows []Row
	totalRows := 0
	skippedRows := 0
	columns := make(map[string]bool)

	for _, obj := range objects {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		totalRows++

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

	return &Result{
		Rows:        rows,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     sortedKeys(columns),
		Format:      "JSON",
	}, nil
}

// Extensions returns the file extensions this decoder handles
func (d *JSONDecoder) Extensions() []string {
	return []string{".json"}
}

// stringifyValue renders a decoded JSON scalar as the string form the
// importer expects
func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		// Nested structures have no column representation; keep raw JSON.
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
