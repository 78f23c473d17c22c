package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

// PostgresArchive implements the domain.ReportArchive interface using
// PostgreSQL, for deployments where multiple instances share one archive.
type PostgresArchive struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresArchive creates a new PostgreSQL report archive.
// It expects the reports table to already exist (created via migrations).
func NewPostgresArchive(db *sql.DB, logger *logrus.Logger) (*PostgresArchive, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresArchive{db: db, logger: logger}, nil
}

// NewPostgresArchiveFromURL creates a new PostgreSQL report archive from a
// connection URL.
func NewPostgresArchiveFromURL(databaseURL string, logger *logrus.Logger) (*PostgresArchive, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres archive requires a database URL")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresArchive(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("PostgreSQL report archive initialized")

	return store, nil
}

// Save stores a report, replacing any previous version with the same ID.
func (s *PostgresArchive) Save(ctx context.Context, report *domain.AnalysisReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO reports (report_id, patient_id, drug, risk_label, severity, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (report_id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			drug = EXCLUDED.drug,
			risk_label = EXCLUDED.risk_label,
			severity = EXCLUDED.severity,
			created_at = EXCLUDED.created_at,
			payload = EXCLUDED.payload
	`

	_, err = s.db.ExecContext(ctx, query,
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
func (s *PostgresArchive) Get(ctx context.Context, reportID string) (*domain.AnalysisReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM reports WHERE report_id = $1", reportID,
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
func (s *PostgresArchive) List(ctx context.Context, patientID string, limit, offset int) ([]*domain.AnalysisReport, error) {
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
			LIMIT $1 OFFSET $2
		`, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT payload FROM reports
			WHERE patient_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
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
func (s *PostgresArchive) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// Delete removes a report by ID.
func (s *PostgresArchive) Delete(ctx context.Context, reportID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE report_id = $1", reportID)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// ExportJSON exports all reports to a JSON writer.
func (s *PostgresArchive) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *PostgresArchive) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *PostgresArchive) Close() error {
	return s.db.Close()
}
