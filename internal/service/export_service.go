package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/incubatehub/compliance-api/internal/models"
	"github.com/incubatehub/compliance-api/pkg/export"
	"github.com/incubatehub/compliance-api/pkg/storage"
)

type overviewProvider interface {
	Overview(ctx context.Context, companyCode string, opts OverviewOptions) (*models.ComplianceOverview, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheetName string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	Rows         int
	ExpiresAt    time.Time
}

// ExportRenderers groups the format renderers; nil members fall back to the defaults.
type ExportRenderers struct {
	CSV  csvRenderer
	PDF  pdfRenderer
	XLSX xlsxRenderer
}

// ExportService builds compliance datasets and persists rendered files.
type ExportService struct {
	overview overviewProvider
	storage  storage.ObjectStore
	csv      csvRenderer
	pdf      pdfRenderer
	xlsx     xlsxRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	now      func() time.Time
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(overview overviewProvider, store storage.ObjectStore, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers ExportRenderers) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderers.CSV == nil {
		renderers.CSV = export.NewCSVExporter()
	}
	if renderers.PDF == nil {
		renderers.PDF = export.NewPDFExporter()
	}
	if renderers.XLSX == nil {
		renderers.XLSX = export.NewXLSXExporter()
	}
	return &ExportService{
		overview: overview,
		storage:  store,
		csv:      renderers.CSV,
		pdf:      renderers.PDF,
		xlsx:     renderers.XLSX,
		signer:   signer,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Generate builds the dataset described by job, stores the rendered file and signs a download link.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	companyCode := job.Params.CompanyCode
	if companyCode == "" {
		companyCode = job.CompanyCode
	}
	overview, _, err := s.overview.Overview(ctx, companyCode, OverviewOptions{Refresh: true})
	if err != nil {
		return nil, err
	}
	dataset, title, err := s.BuildDataset(job.Type, overview, job.Params)
	if err != nil {
		return nil, err
	}

	payload, contentType, err := s.Render(job.Params.Format, dataset, title)
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job, companyCode)
	relPath, err := s.storage.Save(ctx, filename, payload, contentType)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	s.logger.Debug("export rendered",
		zap.String("job_id", job.ID),
		zap.String("path", relPath),
		zap.Int("rows", len(dataset.Rows)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		Rows:         len(dataset.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// Render encodes a dataset in the requested format and returns the payload with its content type.
func (s *ExportService) Render(format models.ReportFormat, dataset export.Dataset, title string) ([]byte, string, error) {
	switch format {
	case models.ReportFormatCSV:
		data, err := s.csv.Render(dataset)
		return data, "text/csv", err
	case models.ReportFormatPDF:
		data, err := s.pdf.Render(dataset, title)
		return data, "application/pdf", err
	case models.ReportFormatXLSX:
		data, err := s.xlsx.Render(dataset, "Compliance")
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	default:
		return nil, "", fmt.Errorf("unsupported format %s", format)
	}
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadToken, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a reader over the stored file.
func (s *ExportService) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	return s.storage.Open(ctx, relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(ctx context.Context, relPath string) error {
	return s.storage.Delete(ctx, relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ctx context.Context, ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ctx, ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob, companyCode string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("compliance_%s_%s_%s.%s",
		strings.ToLower(string(job.Type)), sanitizeFilename(companyCode), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// BuildDataset flattens an overview into rows for the requested report type.
func (s *ExportService) BuildDataset(reportType models.ReportType, overview *models.ComplianceOverview, params models.ReportJobParams) (export.Dataset, string, error) {
	if overview == nil {
		return export.Dataset{}, "", fmt.Errorf("overview nil")
	}
	summaries := filterSummaries(overview.Summaries, params)
	switch reportType {
	case models.ReportTypeParticipants:
		return participantsDataset(summaries, params), fmt.Sprintf("Compliance Participants %s", overview.CompanyCode), nil
	case models.ReportTypeDocuments:
		return documentsDataset(summaries, params), fmt.Sprintf("Compliance Documents %s", overview.CompanyCode), nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", reportType)
	}
}

var participantHeaders = []string{"Participant ID", "Name", "Email", "Documents", "Valid", "Expiring", "Expired", "Missing", "Pending", "Invalid", "Score", "Action Needed", "Last Activity"}

var participantKinds = map[string]export.ColumnKind{"Last Activity": export.ColumnDate}

func participantsDataset(summaries []models.ParticipantComplianceSummary, params models.ReportJobParams) export.Dataset {
	rows := make([]map[string]string, 0, len(summaries))
	for _, summary := range summaries {
		if len(params.Statuses) > 0 && !hasStatus(summary.Documents, params.Statuses) {
			continue
		}
		c := summary.Counts
		rows = append(rows, map[string]string{
			"Participant ID": summary.ParticipantID,
			"Name":           summary.Name,
			"Email":          summary.Email,
			"Documents":      strconv.Itoa(c.Total),
			"Valid":          strconv.Itoa(c.Valid),
			"Expiring":       strconv.Itoa(c.Expiring),
			"Expired":        strconv.Itoa(c.Expired),
			"Missing":        strconv.Itoa(c.Missing),
			"Pending":        strconv.Itoa(c.Pending),
			"Invalid":        strconv.Itoa(c.Invalid),
			"Score":          strconv.Itoa(summary.ComplianceScore),
			"Action Needed":  strconv.FormatBool(summary.ActionNeeded),
			"Last Activity":  summary.LastActivity,
		})
	}
	return export.Dataset{Headers: participantHeaders, Kinds: participantKinds, Rows: rows}
}

var documentHeaders = []string{"Participant ID", "Participant", "Type", "Document Name", "Status", "Verification", "Expiry Date", "Last Verified By", "Last Verified At"}

var documentKinds = map[string]export.ColumnKind{
	"Status":           export.ColumnStatus,
	"Verification":     export.ColumnStatus,
	"Expiry Date":      export.ColumnDate,
	"Last Verified At": export.ColumnDate,
}

func documentsDataset(summaries []models.ParticipantComplianceSummary, params models.ReportJobParams) export.Dataset {
	rows := make([]map[string]string, 0)
	for _, summary := range summaries {
		for _, doc := range summary.Documents {
			if len(params.Statuses) > 0 && !statusIn(doc.EffectiveStatus, params.Statuses) {
				continue
			}
			rows = append(rows, map[string]string{
				"Participant ID":   summary.ParticipantID,
				"Participant":      summary.Name,
				"Type":             doc.Type,
				"Document Name":    doc.DocumentName,
				"Status":           string(doc.EffectiveStatus),
				"Verification":     string(doc.VerificationStatusRaw),
				"Expiry Date":      doc.ExpiryDate.String(),
				"Last Verified By": doc.LastVerifiedBy,
				"Last Verified At": doc.LastVerifiedAt,
			})
		}
	}
	return export.Dataset{Headers: documentHeaders, Kinds: documentKinds, Rows: rows}
}

func filterSummaries(summaries []models.ParticipantComplianceSummary, params models.ReportJobParams) []models.ParticipantComplianceSummary {
	if params.ParticipantID == nil || *params.ParticipantID == "" {
		return summaries
	}
	for _, summary := range summaries {
		if summary.ParticipantID == *params.ParticipantID {
			return []models.ParticipantComplianceSummary{summary}
		}
	}
	return nil
}

func hasStatus(docs []models.ComplianceDocument, statuses []models.EffectiveStatus) bool {
	for _, doc := range docs {
		if statusIn(doc.EffectiveStatus, statuses) {
			return true
		}
	}
	return false
}

func statusIn(status models.EffectiveStatus, statuses []models.EffectiveStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
