package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmguard-server/internal/archive"
	"github.com/pharmguard-server/internal/cache"
	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
	"github.com/pharmguard-server/internal/service"
)

const codeineVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	PATIENT
22	42524947	rs3892097	C	T	99	PASS	GENE=CYP2D6;STAR=*4	GT	1/1
`

const emptyVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	PATIENT
`

// stubConfigManager satisfies domain.ConfigManager with a fixed config.
type stubConfigManager struct {
	config *domain.Config
}

func (s *stubConfigManager) GetConfig() *domain.Config                   { return s.config }
func (s *stubConfigManager) GetServerConfig() *domain.ServerConfig       { return &s.config.Server }
func (s *stubConfigManager) GetExplainerConfig() *domain.ExplainerConfig { return &s.config.Explainer }
func (s *stubConfigManager) GetCacheConfig() *domain.CacheConfig         { return &s.config.Cache }
func (s *stubConfigManager) GetDatabaseConfig() *domain.DatabaseConfig   { return &s.config.Database }
func (s *stubConfigManager) Validate() error                             { return nil }
func (s *stubConfigManager) GetDatabaseConnectionString() string         { return "" }
func (s *stubConfigManager) IsProduction() bool                          { return false }
func (s *stubConfigManager) IsDevelopment() bool                         { return true }

type serverOptions struct {
	maxUploadBytes int64
	archive        domain.ReportArchive
	reports        *cache.ReportCache
}

func newTestServer(t *testing.T, opts serverOptions) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing

	if opts.maxUploadBytes == 0 {
		opts.maxUploadBytes = 5 * 1024 * 1024
	}

	manager := &stubConfigManager{config: &domain.Config{
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			MaxUploadBytes: opts.maxUploadBytes,
		},
		Logging:   domain.LoggingConfig{Level: "warn"},
		Explainer: domain.ExplainerConfig{Provider: "static"},
	}}

	library := reference.NewLibrary(logger)
	analyzer := service.NewAnalyzer(service.AnalyzerConfig{}, library, nil, logger)

	return NewServer(manager, Dependencies{
		Analyzer: analyzer,
		Library:  library,
		Archive:  opts.archive,
		Reports:  opts.reports,
	}, logger)
}

func newTestArchive(t *testing.T) domain.ReportArchive {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing

	store, err := archive.New(domain.ArchiveConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "reports.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func newTestReportCache(t *testing.T) *cache.ReportCache {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing

	reports, err := cache.NewReportCache(domain.CacheConfig{
		Enabled:    true,
		DefaultTTL: time.Hour,
		MemorySize: 32,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { reports.Close() })

	return reports
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func decodeAnalyzeResponse(t *testing.T, w *httptest.ResponseRecorder) *domain.AnalyzeResponse {
	t.Helper()

	var response domain.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return &response
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestReadyEndpoint(t *testing.T) {
	server := newTestServer(t, serverOptions{archive: newTestArchive(t)})

	w := doJSON(t, server, http.MethodGet, "/ready", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status     string `json:"status"`
		Components struct {
			ReferenceLibrary struct {
				Checksum string `json:"checksum"`
				Drugs    int    `json:"drugs"`
			} `json:"reference_library"`
			Explainer string `json:"explainer"`
			Archive   bool   `json:"archive"`
			Cache     bool   `json:"cache"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "ready", body.Status)
	assert.NotEmpty(t, body.Components.ReferenceLibrary.Checksum)
	assert.Equal(t, 6, body.Components.ReferenceLibrary.Drugs)
	assert.Equal(t, "static", body.Components.Explainer)
	assert.True(t, body.Components.Archive)
	assert.False(t, body.Components.Cache)
}

func TestAnalyzeJSONRequest(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodPost, "/api/v1/analyze", analyzeRequest{
		VCFContent: codeineVCF,
		Drugs:      []string{"CODEINE"},
		PatientID:  "PATIENT_001",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	response := decodeAnalyzeResponse(t, w)
	require.Len(t, response.Reports, 1)

	report := response.Reports[0]
	assert.Equal(t, "PATIENT_001", report.PatientID)
	assert.Equal(t, "CODEINE", report.Drug)
	assert.Equal(t, domain.TOXIC, report.RiskAssessment.RiskLabel)
	assert.Equal(t, "*4/*4", report.PharmacogenomicProfile.Diplotype)
}

func TestAnalyzeMultipartRequest(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("vcf", "sample.vcf")
	require.NoError(t, err)
	_, err = part.Write([]byte(codeineVCF))
	require.NoError(t, err)

	require.NoError(t, form.WriteField("drugs", "CODEINE, warfarin"))
	require.NoError(t, form.WriteField("patient_id", "PATIENT_042"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	response := decodeAnalyzeResponse(t, w)
	require.Len(t, response.Reports, 2)
	assert.Equal(t, "CODEINE", response.Reports[0].Drug)
	assert.Equal(t, "WARFARIN", response.Reports[1].Drug)
	assert.Equal(t, "PATIENT_042", response.Reports[0].PatientID)
}

func TestAnalyzeMultipartMissingFile(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("drugs", "CODEINE"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrInvalidInput)
}

func TestAnalyzeRejectsEmptyDrugList(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodPost, "/api/v1/analyze", analyzeRequest{
		VCFContent: codeineVCF,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrValidation)
}

func TestAnalyzeRejectsVariantFreeInput(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodPost, "/api/v1/analyze", analyzeRequest{
		VCFContent: emptyVCF,
		Drugs:      []string{"CODEINE"},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrNoVariants)
}

func TestAnalyzeRejectsMalformedJSON(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrInvalidInput)
}

func TestAnalyzeServesRepeatRequestsFromCache(t *testing.T) {
	server := newTestServer(t, serverOptions{reports: newTestReportCache(t)})

	request := analyzeRequest{
		VCFContent: codeineVCF,
		Drugs:      []string{"CODEINE"},
		PatientID:  "PATIENT_001",
	}

	first := decodeAnalyzeResponse(t, doJSON(t, server, http.MethodPost, "/api/v1/analyze", request))
	second := decodeAnalyzeResponse(t, doJSON(t, server, http.MethodPost, "/api/v1/analyze", request))

	require.Len(t, first.Reports, 1)
	require.Len(t, second.Reports, 1)

	// The cached report comes back unchanged, report ID included.
	assert.Equal(t, first.Reports[0].ReportID, second.Reports[0].ReportID)
	assert.Equal(t, first.Reports[0].Timestamp, second.Reports[0].Timestamp)
}

func TestAnalyzeAnonymousRequestsBypassCache(t *testing.T) {
	server := newTestServer(t, serverOptions{reports: newTestReportCache(t)})

	request := analyzeRequest{
		VCFContent: codeineVCF,
		Drugs:      []string{"CODEINE"},
	}

	first := decodeAnalyzeResponse(t, doJSON(t, server, http.MethodPost, "/api/v1/analyze", request))
	second := decodeAnalyzeResponse(t, doJSON(t, server, http.MethodPost, "/api/v1/analyze", request))

	require.Len(t, first.Reports, 1)
	require.Len(t, second.Reports, 1)

	// Each anonymous request gets its own generated patient identity.
	assert.NotEqual(t, first.Reports[0].ReportID, second.Reports[0].ReportID)
	assert.NotEqual(t, first.Reports[0].PatientID, second.Reports[0].PatientID)
}

func TestAnalyzeArchivesReports(t *testing.T) {
	server := newTestServer(t, serverOptions{archive: newTestArchive(t)})

	w := doJSON(t, server, http.MethodPost, "/api/v1/analyze", analyzeRequest{
		VCFContent: codeineVCF,
		Drugs:      []string{"CODEINE"},
		PatientID:  "PATIENT_007",
	})
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeAnalyzeResponse(t, w)
	require.Len(t, response.Reports, 1)
	reportID := response.Reports[0].ReportID

	// The archived report is readable by ID.
	w = doJSON(t, server, http.MethodGet, "/api/v1/reports/"+reportID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report domain.AnalysisReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "CODEINE", report.Drug)
	assert.Equal(t, "PATIENT_007", report.PatientID)

	// And shows up in the patient's listing.
	w = doJSON(t, server, http.MethodGet, "/api/v1/reports?patient_id=PATIENT_007", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Reports []*domain.AnalysisReport `json:"reports"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)
}

func TestGetReportNotFound(t *testing.T) {
	server := newTestServer(t, serverOptions{archive: newTestArchive(t)})

	w := doJSON(t, server, http.MethodGet, "/api/v1/reports/does-not-exist", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrReportNotFound)
}

func TestReportRoutesWithoutArchive(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodGet, "/api/v1/reports/abc", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrArchiveDisabled)

	w = doJSON(t, server, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDrugPanelEndpoint(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodGet, "/api/v1/drugs", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Drugs []string `json:"drugs"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 6, body.Count)
	assert.Contains(t, body.Drugs, "CODEINE")
	assert.Contains(t, body.Drugs, "WARFARIN")
}

func TestGenePanelEndpoint(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodGet, "/api/v1/genes", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Genes []string `json:"genes"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 6, body.Count)
	assert.Contains(t, body.Genes, "CYP2D6")
	assert.Contains(t, body.Genes, "DPYD")
}

func TestAnalyzeRejectsOversizedBody(t *testing.T) {
	server := newTestServer(t, serverOptions{maxUploadBytes: 128})

	w := doJSON(t, server, http.MethodPost, "/api/v1/analyze", analyzeRequest{
		VCFContent: codeineVCF + strings.Repeat("#", 512),
		Drugs:      []string{"CODEINE"},
	})

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeadersApplied(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	w := doJSON(t, server, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestAnalyzePreservesRequestID(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	payload, err := json.Marshal(analyzeRequest{VCFContent: codeineVCF, Drugs: []string{"CODEINE"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-12345")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-12345", w.Header().Get("X-Request-ID"))
}
