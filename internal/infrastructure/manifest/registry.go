package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Registry routes a manifest file to the decoder for its extension
type Registry struct {
	opts     *Options
	decoders map[string]Decoder
}

// NewRegistry creates a registry with all built-in decoders registered
func NewRegistry(opts *Options) *Registry {
	if opts == nil {
		opts = DefaultOptions()
	}

	registry := &Registry{
		opts:     opts,
		decoders: make(map[string]Decoder),
	}

	registry.Register(NewCSVDecoder(opts))
	registry.Register(NewExcelDecoder(opts))
	registry.Register(NewJSONDecoder(opts))
	registry.Register(NewJSONLDecoder(opts))

	return registry
}

// Register adds a decoder for its declared extensions
func (r *Registry) Register(decoder Decoder) {
	for _, ext := range decoder.Extensions() {
		r.decoders[normalizeExt(ext)] = decoder
	}
}

// DecoderFor returns the decoder for a file path
func (r *Registry) DecoderFor(path string) (Decoder, error) {
	ext := normalizeExt(filepath.Ext(path))
	decoder, ok := r.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported manifest format: %s", ext)
	}
	return decoder, nil
}

// IsSupported checks whether a file extension has a decoder
func (r *Registry) IsSupported(ext string) bool {
	_, ok := r.decoders[normalizeExt(ext)]
	return ok
}

// ReadFile decodes a manifest file from disk with the decoder matching its
// extension
func (r *Registry) ReadFile(ctx context.Context, path string) (*Result, error) {
	decoder, err := r.DecoderFor(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	if r.opts.MaxFileSize > 0 {
		stat, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat manifest: %w", err)
		}
		if stat.Size() > r.opts.MaxFileSize {
			return nil, fmt.Errorf("manifest size %d exceeds maximum %d", stat.Size(), r.opts.MaxFileSize)
		}
	}

	return decoder.Decode(ctx, file)
}

// Rows is the convenience form consumed by the importer: decoded rows only
func (r *Registry) Rows(ctx context.Context, path string) ([]map[string]string, error) {
	result, err := r.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = row
	}
	return rows, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
