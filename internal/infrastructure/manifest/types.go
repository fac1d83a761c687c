package manifest

import (
	"context"
	"io"
)

// Row is one manifest line keyed by column name. All values are carried as
// strings; the importer owns the conversion into typed intake fields.
type Row map[string]string

// Result contains the decoded rows plus decoding statistics
type Result struct {
	Rows        []Row
	TotalRows   int
	SkippedRows int
	Columns     []string
	Format      string
}

// Decoder turns one manifest file format into rows
type Decoder interface {
	// Decode reads and decodes manifest data from a reader
	Decode(ctx context.Context, r io.Reader) (*Result, error)

	// Extensions returns the file extensions this decoder handles
	Extensions() []string
}

// Options holds configuration shared by all decoders
type Options struct {
	// SkipEmptyRows determines if empty rows should be skipped
	SkipEmptyRows bool

	// TrimWhitespace determines if cell values should be trimmed
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64
}

// DefaultOptions returns sensible defaults for supplier manifests
func DefaultOptions() *Options {
	return &Options{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    50 * 1024 * 1024, // 50 MB
	}
}
