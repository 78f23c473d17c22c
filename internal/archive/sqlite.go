package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pharmguard-server/internal/domain"
)

// SQLiteArchive implements the domain.ReportArchive interface using SQLite.
// It is the default backend for single-node deployments and the CLI.
type SQLiteArchive struct {
	db     *sql.DB
	dbPath string
	logger *logrus.Logger
}

// NewSQLiteArchive creates a new SQLite report archive.
// It creates the database file and schema if they don't exist.
func NewSQLiteArchive(dbPath string, logger *logrus.Logger) (*SQLiteArchive, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite archive requires a database path")
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createReportSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("SQLite report archive initialized")

	return &SQLiteArchive{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// createReportSchema creates the database tables and indexes.
func createReportSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		report_id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		drug TEXT NOT NULL,
		risk_label TEXT NOT NULL,
		severity TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_patient ON reports(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a report, replacing any previous version with the same ID.
func (s *SQLiteArchive) Save(ctx context.Context, report *domain.AnalysisReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (report_id, patient_id, drug, risk_label, severity, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_id) DO UPDATE SET
			patient_id = excluded.patient_id,
			drug = excluded.drug,
			risk_label = excluded.risk_label,
			severity = excluded.severity,
			created_at = excluded.created_at,
			payload = excluded.payload
	`,
		report.ReportID,
		report.PatientID,
		report.Drug,
		string(report.RiskAssessment.RiskLabel),
		string(report.RiskAssessment.Severity),
		report.Timestamp.UTC(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// Get retrieves a report by ID.
func (s *SQLiteArchive) Get(ctx context.Context, reportID string) (*domain.AnalysisReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM reports WHERE report_id = ?", reportID,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s: %w", reportID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return decodeReportPayload(payload)
}

// List returns reports newest first, optionally filtered by patient ID.
func (s *SQLiteArchive) List(ctx context.Context, patientID string, limit, offset int) ([]*domain.AnalysisReport, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var (
		rows *sql.Rows
		err  error
	)
	if patientID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT payload FROM reports
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT payload FROM reports
			WHERE patient_id = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, patientID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var result []*domain.AnalysisReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		report, err := decodeReportPayload(payload)
		if err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	return result, rows.Err()
}

// Count returns the total number of archived reports.
func (s *SQLiteArchive) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

// Delete removes a report by ID.
func (s *SQLiteArchive) Delete(ctx context.Context, reportID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE report_id = ?", reportID)
	return err
}

// ExportJSON exports all reports to a JSON writer.
func (s *SQLiteArchive) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	export := &ReportExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Reports:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports reports from a JSON reader, skipping IDs that already
// exist.
func (s *SQLiteArchive) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export ReportExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, report := range export.Reports {
		existing, err := s.Get(ctx, report.ReportID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, report); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteArchive) Close() error {
	return s.db.Close()
}
