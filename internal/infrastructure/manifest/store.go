package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Store manages the manifest drop directory: supplier manifests are
// delivered into incoming/ by external transfer, and are moved to archive/
// once imported.
type Store struct {
	basePath string
	logger   *slog.Logger
}

// StoreConfig for the manifest drop directory
type StoreConfig struct {
	BasePath string // Base directory for manifests (e.g., "/var/lib/coldchain/manifests")
}

// FileInfo describes one stored manifest
type FileInfo struct {
	Name       string
	StoredPath string
	Size       int64
	Hash       string
	ReceivedAt time.Time
}

// NewStore creates the drop directory layout if it does not exist
func NewStore(cfg *StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, dir := range []string{"incoming", "archive"} {
		if err := os.MkdirAll(filepath.Join(cfg.BasePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	return &Store{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// Receipt hashes an incoming manifest, producing the audit record logged
// when the file is queued for import
func (s *Store) Receipt(ctx context.Context, name string) (*FileInfo, error) {
	safeName := filepath.Base(name)
	path := filepath.Join(s.basePath, "incoming", safeName)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found: %s", name)
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}

	hash := sha256.New()
	size, err := io.Copy(hash, file)
	if err != nil {
		return nil, fmt.Errorf("failed to hash manifest: %w", err)
	}

	return &FileInfo{
		Name:       safeName,
		StoredPath: path,
		Size:       size,
		Hash:       hex.EncodeToString(hash.Sum(nil)),
		ReceivedAt: stat.ModTime().UTC(),
	}, nil
}

// IncomingPath returns the on-disk path of a manifest awaiting import
func (s *Store) IncomingPath(name string) string {
	return filepath.Join(s.basePath, "incoming", filepath.Base(name))
}

// ListIncoming returns the names of manifests awaiting import
func (s *Store) ListIncoming(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, "incoming"))
	if err != nil {
		return nil, fmt.Errorf("failed to read incoming directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Archive moves an imported manifest from incoming/ to archive/
func (s *Store) Archive(ctx context.Context, name string) error {
	safeName := filepath.Base(name)
	src := filepath.Join(s.basePath, "incoming", safeName)
	dst := filepath.Join(s.basePath, "archive", safeName)

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to archive manifest %s: %w", safeName, err)
	}

	s.logger.Info("manifest archived", slog.String("name", safeName))
	return nil
}

// CleanupArchive removes archived manifests older than the given duration
func (s *Store) CleanupArchive(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	archiveDir := filepath.Join(s.basePath, "archive")

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat archived manifest",
				slog.String("name", entry.Name()), "error", err)
			continue
		}

		if info.ModTime().Before(cutoff) {
			path := filepath.Join(archiveDir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("failed to remove archived manifest",
					slog.String("name", entry.Name()), "error", err)
			} else {
				s.logger.Debug("removed archived manifest",
					slog.String("name", entry.Name()),
					slog.Time("mod_time", info.ModTime()))
			}
		}
	}

	return nil
}
