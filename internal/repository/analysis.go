// Package repository persists the per-sample analysis audit trail to
// PostgreSQL: the variants extracted from each upload, the alleles they
// resolved to, and the per-gene diplotype and phenotype calls.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

const defaultQueryLimit = 50

// AnalysisRepository handles analysis audit-trail persistence
type AnalysisRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool, logger *logrus.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:  db,
		log: logger,
	}
}

// SaveAnalysis inserts one completed analysis run with its gene calls.
// A missing AnalysisID is generated and written back to the record.
func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, record *domain.AnalysisRecord) error {
	if record == nil {
		return fmt.Errorf("analysis record cannot be nil")
	}
	if record.AnalysisID == "" {
		record.AnalysisID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	variantsJSON, err := json.Marshal(record.Variants)
	if err != nil {
		return fmt.Errorf("marshaling variants: %w", err)
	}

	allelesJSON, err := json.Marshal(record.Alleles)
	if err != nil {
		return fmt.Errorf("marshaling alleles: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO analyses (
			analysis_id, patient_id, drug, variants, alleles, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err = tx.Exec(ctx, query,
		record.AnalysisID,
		record.PatientID,
		record.Drug,
		variantsJSON,
		allelesJSON,
		record.CreatedAt.UTC(),
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"analysis_id": record.AnalysisID,
			"patient_id":  record.PatientID,
			"error":       err,
		}).Error("Failed to save analysis")
		return fmt.Errorf("saving analysis: %w", err)
	}

	callQuery := `
		INSERT INTO gene_calls (
			analysis_id, gene, diplotype, phenotype, method, activity_score, conflict
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	for _, call := range record.Calls {
		_, err := tx.Exec(ctx, callQuery,
			record.AnalysisID,
			string(call.Gene),
			call.Diplotype,
			string(call.Phenotype),
			string(call.Method),
			call.ActivityScore,
			call.Conflict,
		)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"analysis_id": record.AnalysisID,
				"gene":        call.Gene,
				"error":       err,
			}).Error("Failed to save gene call")
			return fmt.Errorf("saving gene call for %s: %w", call.Gene, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing analysis: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"analysis_id":   record.AnalysisID,
		"patient_id":    record.PatientID,
		"drug":          record.Drug,
		"variant_count": len(record.Variants),
		"call_count":    len(record.Calls),
	}).Info("Analysis saved successfully")

	return nil
}

// GetAnalysis retrieves an analysis by its ID
func (r *AnalysisRepository) GetAnalysis(ctx context.Context, analysisID string) (*domain.AnalysisRecord, error) {
	// A malformed ID cannot identify a stored analysis.
	if _, err := uuid.Parse(analysisID); err != nil {
		return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT analysis_id, patient_id, drug, variants, alleles, created_at
		FROM analyses
		WHERE analysis_id = $1`

	var record domain.AnalysisRecord
	var variantsJSON, allelesJSON []byte

	err := r.db.QueryRow(ctx, query, analysisID).Scan(
		&record.AnalysisID,
		&record.PatientID,
		&record.Drug,
		&variantsJSON,
		&allelesJSON,
		&record.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"analysis_id": analysisID,
			"error":       err,
		}).Error("Failed to get analysis by ID")
		return nil, fmt.Errorf("getting analysis by ID: %w", err)
	}

	if err := json.Unmarshal(variantsJSON, &record.Variants); err != nil {
		return nil, fmt.Errorf("unmarshaling variants: %w", err)
	}

	if err := json.Unmarshal(allelesJSON, &record.Alleles); err != nil {
		return nil, fmt.Errorf("unmarshaling alleles: %w", err)
	}

	if err := r.attachGeneCalls(ctx, []*domain.AnalysisRecord{&record}); err != nil {
		return nil, err
	}

	return &record, nil
}

// FindByRSID retrieves analyses whose extracted variants include the given
// rsid, newest first.
func (r *AnalysisRepository) FindByRSID(ctx context.Context, rsid string, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	filter, err := json.Marshal([]map[string]string{{"rsid": rsid}})
	if err != nil {
		return nil, fmt.Errorf("marshaling rsid filter: %w", err)
	}

	// Containment against the variants payload is served by the GIN index.
	query := `
		SELECT analysis_id, patient_id, drug, variants, alleles, created_at
		FROM analyses
		WHERE variants @> $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, filter, limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"rsid":  rsid,
			"error": err,
		}).Error("Failed to find analyses by rsid")
		return nil, fmt.Errorf("finding analyses by rsid: %w", err)
	}
	defer rows.Close()

	records, err := r.scanAnalyses(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachGeneCalls(ctx, records); err != nil {
		return nil, err
	}

	return records, nil
}

// FindByGene retrieves analyses that produced a call for the given gene,
// newest first, with pagination.
func (r *AnalysisRepository) FindByGene(ctx context.Context, gene domain.Gene, limit, offset int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT a.analysis_id, a.patient_id, a.drug, a.variants, a.alleles, a.created_at
		FROM analyses a
		WHERE EXISTS (
			SELECT 1 FROM gene_calls g
			WHERE g.analysis_id = a.analysis_id AND g.gene = $1
		)
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, string(gene), limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"gene":  gene,
			"error": err,
		}).Error("Failed to find analyses by gene")
		return nil, fmt.Errorf("finding analyses by gene: %w", err)
	}
	defer rows.Close()

	records, err := r.scanAnalyses(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachGeneCalls(ctx, records); err != nil {
		return nil, err
	}

	return records, nil
}

// ListRecent retrieves the most recently saved analyses, newest first.
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	query := `
		SELECT analysis_id, patient_id, drug, variants, alleles, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.log.WithField("error", err).Error("Failed to list recent analyses")
		return nil, fmt.Errorf("listing recent analyses: %w", err)
	}
	defer rows.Close()

	records, err := r.scanAnalyses(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachGeneCalls(ctx, records); err != nil {
		return nil, err
	}

	return records, nil
}

// scanAnalyses reads analysis rows without their gene calls.
func (r *AnalysisRepository) scanAnalyses(rows pgx.Rows) ([]*domain.AnalysisRecord, error) {
	var records []*domain.AnalysisRecord
	for rows.Next() {
		var record domain.AnalysisRecord
		var variantsJSON, allelesJSON []byte

		err := rows.Scan(
			&record.AnalysisID,
			&record.PatientID,
			&record.Drug,
			&variantsJSON,
			&allelesJSON,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis row: %w", err)
		}

		if err := json.Unmarshal(variantsJSON, &record.Variants); err != nil {
			return nil, fmt.Errorf("unmarshaling variants: %w", err)
		}

		if err := json.Unmarshal(allelesJSON, &record.Alleles); err != nil {
			return nil, fmt.Errorf("unmarshaling alleles: %w", err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis rows: %w", err)
	}

	return records, nil
}

// attachGeneCalls loads the gene calls for all given records in one query.
func (r *AnalysisRepository) attachGeneCalls(ctx context.Context, records []*domain.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	byID := make(map[string]*domain.AnalysisRecord, len(records))
	for i, record := range records {
		ids[i] = record.AnalysisID
		byID[record.AnalysisID] = record
	}

	query := `
		SELECT analysis_id, gene, diplotype, phenotype, method, activity_score, conflict
		FROM gene_calls
		WHERE analysis_id = ANY($1)
		ORDER BY analysis_id, gene`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("getting gene calls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var analysisID string
		var call domain.GeneCallRecord

		err := rows.Scan(
			&analysisID,
			&call.Gene,
			&call.Diplotype,
			&call.Phenotype,
			&call.Method,
			&call.ActivityScore,
			&call.Conflict,
		)
		if err != nil {
			return fmt.Errorf("scanning gene call row: %w", err)
		}

		if record, ok := byID[analysisID]; ok {
			record.Calls = append(record.Calls, call)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating gene call rows: %w", err)
	}

	return nil
}
