package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/agrovault/coldchain-service/internal/pkg/errors"
)

// ManifestReader decodes a supplier manifest file into column-keyed rows
type ManifestReader interface {
	Rows(ctx context.Context, path string) ([]map[string]string, error)
}

// ManifestArchiver moves an imported manifest out of the drop directory
type ManifestArchiver interface {
	Archive(ctx context.Context, name string) error
}

// ImportReport summarizes one manifest import
type ImportReport struct {
	Created int
	Skipped int // duplicate batch codes, in-file or already registered
	Failed  int
	Errors  []string
}

// Importer registers batches in bulk from supplier manifest files. Rows are
// deduplicated by batch code: repeats within the file and codes already
// registered are skipped, and a bad row fails alone without aborting the
// rest of the manifest.
type Importer struct {
	service  *Service
	reader   ManifestReader
	archiver ManifestArchiver
	logger   *slog.Logger
}

// NewImporter creates a manifest importer. The archiver may be nil when the
// caller manages manifest files itself.
func NewImporter(service *Service, reader ManifestReader, archiver ManifestArchiver, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Importer{
		service:  service,
		reader:   reader,
		archiver: archiver,
		logger:   logger,
	}
}

// ImportManifest registers every row of the manifest as a batch in the
// given warehouse
func (i *Importer) ImportManifest(ctx context.Context, warehouseID uuid.UUID, path string) (*ImportReport, error) {
	rows, err := i.reader.Rows(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	report := &ImportReport{}
	seen := make(map[string]bool)

	for idx, row := range rows {
		input, err := i.bindRow(row, warehouseID)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", idx+1, err))
			continue
		}

		if seen[input.BatchCode] {
			report.Skipped++
			continue
		}
		seen[input.BatchCode] = true

		if skip, err := i.alreadyRegistered(ctx, input.BatchCode); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", idx+1, err))
			continue
		} else if skip {
			report.Skipped++
			continue
		}

		if _, err := i.service.CreateBatch(ctx, input); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", idx+1, err))
			continue
		}
		report.Created++
	}

	i.logger.Info("manifest imported",
		slog.String("path", path),
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))

	return report, nil
}

func (i *Importer) alreadyRegistered(ctx context.Context, code string) (bool, error) {
	_, err := i.service.repo.GetByCode(ctx, code)
	if err == nil {
		return true, nil
	}
	if apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound) {
		return false, nil
	}
	return false, err
}

// bindRow converts one manifest row into a create input
func (i *Importer) bindRow(row map[string]string, warehouseID uuid.UUID) (CreateBatchInput, error) {
	input := CreateBatchInput{
		BatchCode:   row["batch_code"],
		WarehouseID: warehouseID,
		Zone:        row["zone"],
		Crop:        row["crop"],
		Variety:     row["variety"],
		Unit:        row["unit"],
	}

	quantity, err := parseFloatField(row, "quantity", true)
	if err != nil {
		return input, err
	}
	input.Quantity = quantity

	shelfLife, err := parseIntField(row, "shelf_life_days", true)
	if err != nil {
		return input, err
	}
	input.ShelfLifeDays = shelfLife

	entryDate, err := parseDateField(row, "entry_date")
	if err != nil {
		return input, err
	}
	input.EntryDate = entryDate

	if input.TargetTemp, err = parseFloatField(row, "target_temp", false); err != nil {
		return input, err
	}
	if input.TargetHumidity, err = parseFloatField(row, "target_humidity", false); err != nil {
		return input, err
	}

	return input, nil
}

func parseFloatField(row map[string]string, key string, required bool) (float64, error) {
	raw := strings.TrimSpace(row[key])
	if raw == "" {
		if required {
			return 0, fmt.Errorf("missing %s", key)
		}
		return 0, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return value, nil
}

func parseIntField(row map[string]string, key string, required bool) (int, error) {
	raw := strings.TrimSpace(row[key])
	if raw == "" {
		if required {
			return 0, fmt.Errorf("missing %s", key)
		}
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return value, nil
}

// parseDateField accepts a bare date or a full RFC3339 timestamp; an empty
// value means the batch entered now.
func parseDateField(row map[string]string, key string) (time.Time, error) {
	raw := strings.TrimSpace(row[key])
	if raw == "" {
		return time.Now().UTC(), nil
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", key, raw)
}
