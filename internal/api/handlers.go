package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmguard-server/internal/cache"
	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
	"github.com/pharmguard-server/internal/service"
)

// analyzeRequest is the normalized form of both analyze request encodings:
// a JSON body with inline VCF content, or a multipart upload with a `vcf`
// file field and comma-separated `drugs`.
type analyzeRequest struct {
	VCFContent string   `json:"vcf_content"`
	Drugs      []string `json:"drugs"`
	PatientID  string   `json:"patient_id"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

// handleReady reports whether the pipeline dependencies are serving.
func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
		"components": gin.H{
			"reference_library": gin.H{
				"checksum": s.library.Checksum(),
				"drugs":    len(s.library.SupportedDrugs()),
			},
			"explainer": s.configManager.GetExplainerConfig().Provider,
			"archive":   s.archive != nil,
			"cache":     s.reports != nil,
		},
	})
}

// handleAnalyze runs the pipeline for one VCF sample against one or more
// drugs. Per-drug failures degrade to omitted reports; only an unusable
// sample or an empty drug list fails the request.
func (s *Server) handleAnalyze(c *gin.Context) {
	req, err := s.bindAnalyzeRequest(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid analysis request", err)
		return
	}
	if len(req.Drugs) == 0 {
		s.respondError(c, http.StatusBadRequest, domain.ErrValidation, "at least one drug is required", nil)
		return
	}

	start := time.Now()
	ctx := c.Request.Context()

	cached, missing := s.lookupCached(ctx, req)

	fresh := make(map[string]*domain.AnalysisReport)
	if len(missing) > 0 {
		response, err := s.analyzer.AnalyzeBatch(ctx, service.BatchParams{
			PatientID:  req.PatientID,
			VCFContent: req.VCFContent,
			Drugs:      missing,
		})
		if err != nil {
			s.respondAnalyzeError(c, err)
			return
		}
		for _, report := range response.Reports {
			fresh[report.Drug] = report
			s.storeReport(ctx, req, report)
		}
	}

	// Reports come back in request order regardless of cache state.
	reports := make([]*domain.AnalysisReport, 0, len(req.Drugs))
	for _, drug := range req.Drugs {
		normalized := reference.NormalizeDrug(drug)
		if report, ok := cached[normalized]; ok {
			reports = append(reports, report)
			continue
		}
		if report, ok := fresh[normalized]; ok {
			reports = append(reports, report)
		}
	}

	c.JSON(http.StatusOK, domain.AnalyzeResponse{
		Reports:        reports,
		ProcessingTime: time.Since(start),
		Timestamp:      time.Now().UTC(),
	})
}

// bindAnalyzeRequest decodes either encoding into the normalized request.
func (s *Server) bindAnalyzeRequest(c *gin.Context) (*analyzeRequest, error) {
	if c.ContentType() == "multipart/form-data" {
		file, err := c.FormFile("vcf")
		if err != nil {
			return nil, fmt.Errorf("multipart field 'vcf' is required: %w", err)
		}

		opened, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		defer opened.Close()

		content, err := io.ReadAll(opened)
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}

		return &analyzeRequest{
			VCFContent: string(content),
			Drugs:      splitDrugs(c.PostForm("drugs")),
			PatientID:  c.PostForm("patient_id"),
		}, nil
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// lookupCached returns cached reports keyed by normalized drug plus the
// drugs still needing analysis. Anonymous requests always recompute: a
// request without a stable patient identity gets a freshly generated one,
// so serving another caller's cached report would leak their identity.
func (s *Server) lookupCached(ctx context.Context, req *analyzeRequest) (map[string]*domain.AnalysisReport, []string) {
	cached := make(map[string]*domain.AnalysisReport)

	if s.reports == nil || req.PatientID == "" {
		return cached, req.Drugs
	}

	checksum := s.library.Checksum()
	missing := make([]string, 0, len(req.Drugs))
	for _, drug := range req.Drugs {
		normalized := reference.NormalizeDrug(drug)
		if _, ok := cached[normalized]; ok {
			continue
		}
		key := cache.Key(req.VCFContent, req.PatientID, normalized, checksum)
		if report, ok := s.reports.Get(ctx, key); ok {
			cached[normalized] = report
		} else {
			missing = append(missing, drug)
		}
	}
	return cached, missing
}

// storeReport archives and caches one fresh report. Both writes are best
// effort; the response does not depend on either succeeding.
func (s *Server) storeReport(ctx context.Context, req *analyzeRequest, report *domain.AnalysisReport) {
	if s.archive != nil {
		if err := s.archive.Save(ctx, report); err != nil {
			s.log.WithError(err).WithField("report_id", report.ReportID).Warn("Failed to archive report")
		}
	}
	if s.reports != nil && req.PatientID != "" {
		key := cache.Key(req.VCFContent, req.PatientID, report.Drug, s.library.Checksum())
		if err := s.reports.Set(ctx, key, report); err != nil {
			s.log.WithError(err).WithField("report_id", report.ReportID).Warn("Failed to cache report")
		}
	}
}

// handleGetReport serves one archived report by ID.
func (s *Server) handleGetReport(c *gin.Context) {
	if s.archive == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrArchiveDisabled, "report archive is not configured", nil)
		return
	}

	report, err := s.archive.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrReportNotFound, "report not found", err)
			return
		}
		s.log.WithError(err).Error("Archive read failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrArchiveError, "failed to read report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleListReports serves archived reports, optionally filtered by patient.
func (s *Server) handleListReports(c *gin.Context) {
	if s.archive == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrArchiveDisabled, "report archive is not configured", nil)
		return
	}

	reports, err := s.archive.List(c.Request.Context(),
		c.Query("patient_id"), intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		s.log.WithError(err).Error("Archive list failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrArchiveError, "failed to list reports", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// handleDrugs serves the supported drug panel.
func (s *Server) handleDrugs(c *gin.Context) {
	drugs := s.analyzer.SupportedDrugs()
	c.JSON(http.StatusOK, gin.H{
		"drugs": drugs,
		"count": len(drugs),
	})
}

// handleGenes serves the supported gene panel.
func (s *Server) handleGenes(c *gin.Context) {
	genes := domain.SupportedGenes()
	names := make([]string, len(genes))
	for i, gene := range genes {
		names[i] = string(gene)
	}
	c.JSON(http.StatusOK, gin.H{
		"genes": names,
		"count": len(names),
	})
}

// respondAnalyzeError maps pipeline failures onto HTTP statuses.
func (s *Server) respondAnalyzeError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNoVariantsFound):
		s.respondError(c, http.StatusBadRequest, domain.ErrNoVariants, "no usable variants found in input", err)
	case errors.As(err, &validationErr):
		s.respondError(c, http.StatusBadRequest, domain.ErrValidation, validationErr.Message, err)
	default:
		s.log.WithError(err).Error("Analysis request failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "analysis failed", err)
	}
}

// respondError writes the standardized error envelope.
func (s *Server) respondError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("request_id")))
}

// splitDrugs parses the comma-separated multipart drugs field.
func splitDrugs(raw string) []string {
	parts := strings.Split(raw, ",")
	drugs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			drugs = append(drugs, trimmed)
		}
	}
	return drugs
}

// intQuery parses an optional non-negative integer query parameter.
// Missing or malformed values fall back to zero, which downstream layers
// replace with their own defaults.
func intQuery(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
