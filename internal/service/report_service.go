package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
	"github.com/noah-isme/sma-report-card/pkg/export"
	"github.com/noah-isme/sma-report-card/pkg/storage"
)

type studentSource interface {
	FindStudent(ctx context.Context, id string) (*models.StudentRecord, error)
	ListStudentIDs(ctx context.Context) ([]string, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportRenderer interface {
	Render(report models.ReportData) string
}

type csvRenderer interface {
	Render(data export.Dataset, footer ...[]string) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, summary ...string) ([]byte, error)
}

// ReportOptions selects transcript order and GPA scale. Zero values fall back
// to the service defaults.
type ReportOptions struct {
	Order models.SortOrder
	Scale models.GPAScale
}

// GeneratedReport pairs the computed figures with their text rendering.
type GeneratedReport struct {
	Data models.ReportData `json:"report"`
	Text string            `json:"text"`
}

// ExportResult captures a stored export and its download token.
type ExportResult struct {
	RelativePath string              `json:"-"`
	Token        string              `json:"token"`
	URL          string              `json:"url"`
	Format       models.ReportFormat `json:"format"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportServiceConfig holds report defaults and export settings.
type ReportServiceConfig struct {
	DefaultOrder models.SortOrder
	DefaultScale models.GPAScale
	BaseURL      string
	ResultTTL    time.Duration
}

// ReportService loads student records, builds reports and stores exports.
type ReportService struct {
	source   studentSource
	storage  fileStorage
	signer   *storage.SignedURLSigner
	renderer reportRenderer
	csv      csvRenderer
	pdf      pdfRenderer
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// NewReportService constructs the report service. storage and signer may be
// nil when exports are not needed.
func NewReportService(source studentSource, store fileStorage, signer *storage.SignedURLSigner, renderer reportRenderer, metrics *MetricsService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewTextRenderer(models.DefaultAttendanceRule())
	}
	if cfg.DefaultOrder == "" {
		cfg.DefaultOrder = models.SortAscending
	}
	if cfg.DefaultScale == "" {
		cfg.DefaultScale = models.GPAScalePercent
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		source:   source,
		storage:  store,
		signer:   signer,
		renderer: renderer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

func (s *ReportService) resolveOptions(opts ReportOptions) ReportOptions {
	if opts.Order == "" {
		opts.Order = s.cfg.DefaultOrder
	}
	if opts.Scale == "" {
		opts.Scale = s.cfg.DefaultScale
	}
	return opts
}

// Generate loads a student and builds the report.
func (s *ReportService) Generate(ctx context.Context, studentID string, opts ReportOptions) (*GeneratedReport, error) {
	start := time.Now()
	opts = s.resolveOptions(opts)

	student, err := s.source.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	report := s.Build(student, opts)
	if report.Data.StudentID == "" {
		report.Data.StudentID = studentID
	}
	s.metrics.ObserveReportBuild(string(opts.Scale), time.Since(start))
	s.logger.Info("report generated",
		zap.String("student_id", studentID),
		zap.Int("courses", len(report.Data.Courses)),
		zap.Float64("gpa", report.Data.GPA),
		zap.String("scale", string(opts.Scale)),
	)
	return report, nil
}

// Build computes and renders a report for an already loaded student.
func (s *ReportService) Build(student *models.StudentRecord, opts ReportOptions) *GeneratedReport {
	opts = s.resolveOptions(opts)
	data := student.BuildReport(opts.Order, opts.Scale)
	return &GeneratedReport{Data: data, Text: s.renderer.Render(data)}
}

// GenerateAll builds a report for every student the source knows about.
func (s *ReportService) GenerateAll(ctx context.Context, opts ReportOptions) ([]*GeneratedReport, error) {
	ids, err := s.source.ListStudentIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	reports := make([]*GeneratedReport, 0, len(ids))
	for _, id := range ids {
		report, err := s.Generate(ctx, id, opts)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Render encodes a report in the requested format.
func (s *ReportService) Render(report *GeneratedReport, format models.ReportFormat) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report nil")
	}
	switch format {
	case models.ReportFormatText, "":
		return []byte(report.Text), nil
	case models.ReportFormatCSV:
		return s.csv.Render(export.ReportDataset(report.Data), export.SummaryFooter(report.Data)...)
	case models.ReportFormatPDF:
		return s.pdf.Render(export.ReportDataset(report.Data), "Report for "+report.Data.StudentName, export.SummaryLines(report.Data)...)
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported format "+string(format))
}

// Export renders and stores the report, returning a signed download link.
func (s *ReportService) Export(ctx context.Context, report *GeneratedReport, format models.ReportFormat) (*ExportResult, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report storage not configured")
	}
	if format == "" {
		format = models.ReportFormatText
	}
	payload, err := s.Render(report, format)
	if err != nil {
		return nil, err
	}

	exportID := uuid.NewString()
	relPath, err := s.storage.Save(s.buildFilename(report.Data.StudentID, exportID, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	s.metrics.RecordExport(string(format))
	s.logger.Info("report exported", zap.String("student_id", report.Data.StudentID), zap.String("format", string(format)), zap.String("path", relPath))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", strings.TrimRight(s.cfg.BaseURL, "/"), token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ResolveDownload validates a token and opens the stored file.
func (s *ReportService) ResolveDownload(token string) (*ReportDownload, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report storage not configured")
	}
	ref, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	file, err := s.storage.Open(ref.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	format, err := models.ParseReportFormat(strings.TrimPrefix(filepath.Ext(ref.Path), "."))
	if err != nil {
		format = models.ReportFormatText
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(ref.Path),
		Format:    format,
		ExpiresAt: ref.ExpiresAt,
	}, nil
}

// Cleanup removes exports older than ttl, or the configured TTL when ttl <= 0.
func (s *ReportService) Cleanup(ttl time.Duration) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ReportService) buildFilename(studentID, exportID string, format models.ReportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", sanitizeFilename(studentID), timestamp, exportID[:8], format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "report"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
