// Package archive persists emitted analysis reports. Reports are stored as
// immutable JSON payloads with a few promoted columns (patient, drug, risk)
// for querying; the payload is the source of truth on read.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

const exportVersion = "1.0"

// maxExportLimit is the maximum number of reports exported at once.
const maxExportLimit = 1000000

// ReportExport is the JSON export envelope shared by both backends.
type ReportExport struct {
	Version    string                   `json:"version"`
	ExportedAt time.Time                `json:"exported_at"`
	Count      int                      `json:"count"`
	Reports    []*domain.AnalysisReport `json:"reports"`
}

// New selects the archive backend from configuration. An empty backend
// disables persistence: callers receive a nil archive and skip saving.
func New(config domain.ArchiveConfig, logger *logrus.Logger) (domain.ReportArchive, error) {
	switch config.Backend {
	case "sqlite":
		return NewSQLiteArchive(config.SQLitePath, logger)
	case "postgres":
		return NewPostgresArchiveFromURL(config.DatabaseURL, logger)
	case "":
		logger.Info("Report archive disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", config.Backend)
	}
}

func decodeReportPayload(payload string) (*domain.AnalysisReport, error) {
	var report domain.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("failed to decode stored report: %w", err)
	}
	return &report, nil
}
