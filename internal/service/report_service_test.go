package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
	"github.com/noah-isme/sma-report-card/pkg/storage"
)

type studentSourceStub struct {
	order    []string
	students map[string]*models.StudentRecord
}

func newStudentSourceStub(students ...*models.StudentRecord) *studentSourceStub {
	stub := &studentSourceStub{students: map[string]*models.StudentRecord{}}
	for _, s := range students {
		stub.order = append(stub.order, s.ID)
		stub.students[s.ID] = s
	}
	return stub
}

func (s *studentSourceStub) FindStudent(ctx context.Context, id string) (*models.StudentRecord, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

func (s *studentSourceStub) ListStudentIDs(ctx context.Context) ([]string, error) {
	return s.order, nil
}

func testStudent(t *testing.T, id, name string) *models.StudentRecord {
	t.Helper()
	student := models.NewStudentRecord(name, id+"@example.com")
	student.ID = id
	course := models.NewCourseRecord("Databases", 4)
	for _, spec := range []struct {
		name     string
		score    float64
		weight   float64
		category models.Category
	}{
		{"Hello SQL", 100, 10, models.CategoryFormative},
		{"Joins", 40, 20, models.CategoryFormative},
		{"Final Project", 90, 20, models.CategorySummative},
	} {
		item, err := models.NewGradedItem(spec.name, spec.score, spec.weight, spec.category)
		require.NoError(t, err)
		course.AddItem(item)
	}
	require.NoError(t, course.MarkAttendance("Mon", models.AttendanceStatusPresent))
	require.NoError(t, course.MarkAttendance("Tue", models.AttendanceStatusPresent))
	require.NoError(t, course.MarkAttendance("Wed", models.AttendanceStatusAbsent))
	student.AddCourse(course)
	return student
}

func newTestReportService(t *testing.T, source studentSource, metrics *MetricsService) *ReportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewReportService(source, store, signer, nil, metrics, zap.NewNop(), ReportServiceConfig{BaseURL: "http://reports.local/"})
}

func TestReportServiceGenerate(t *testing.T) {
	metrics := NewMetricsService()
	svc := newTestReportService(t, newStudentSourceStub(testStudent(t, "ada", "Ada Lovelace")), metrics)

	report, err := svc.Generate(context.Background(), "ada", ReportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ada", report.Data.StudentID)
	assert.Equal(t, models.SortAscending, report.Data.SortOrder)
	assert.Equal(t, models.GPAScalePercent, report.Data.GPAScale)
	assert.InDelta(t, 72.0, report.Data.GPA, 1e-9)
	assert.Contains(t, report.Text, "Report for Ada Lovelace (ada@example.com)")
	assert.Contains(t, report.Text, "Eligible for Resubmission: Joins")
	assert.Contains(t, report.Text, "Overall GPA: 72.00%")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.reportsGenerated.WithLabelValues("percent")))
}

func TestReportServiceGenerateHonoursOptions(t *testing.T) {
	svc := newTestReportService(t, newStudentSourceStub(testStudent(t, "ada", "Ada Lovelace")), nil)

	report, err := svc.Generate(context.Background(), "ada", ReportOptions{Order: models.SortDescending, Scale: models.GPAScaleFourPoint})
	require.NoError(t, err)
	assert.InDelta(t, 2.88, report.Data.GPA, 1e-9)
	assert.Equal(t, "Hello SQL", report.Data.Courses[0].Transcript[0].Name)
	assert.Equal(t, "Joins", report.Data.Courses[0].Transcript[2].Name)
	assert.Contains(t, report.Text, "Overall GPA: 2.88 / 4.00")
}

func TestReportServiceGenerateUnknownStudent(t *testing.T) {
	svc := newTestReportService(t, newStudentSourceStub(), nil)
	_, err := svc.Generate(context.Background(), "ghost", ReportOptions{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestReportServiceGenerateAll(t *testing.T) {
	svc := newTestReportService(t, newStudentSourceStub(testStudent(t, "ada", "Ada"), testStudent(t, "bob", "Bob")), nil)
	reports, err := svc.GenerateAll(context.Background(), ReportOptions{})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Bob", reports[1].Data.StudentName)
}

func TestReportServiceRender(t *testing.T) {
	svc := newTestReportService(t, newStudentSourceStub(testStudent(t, "ada", "Ada")), nil)
	report, err := svc.Generate(context.Background(), "ada", ReportOptions{})
	require.NoError(t, err)

	text, err := svc.Render(report, models.ReportFormatText)
	require.NoError(t, err)
	assert.Equal(t, report.Text, string(text))

	pdf, err := svc.Render(report, models.ReportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = svc.Render(report, models.ReportFormat("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestReportServiceExportAndResolve(t *testing.T) {
	metrics := NewMetricsService()
	svc := newTestReportService(t, newStudentSourceStub(testStudent(t, "ada", "Ada")), metrics)
	report, err := svc.Generate(context.Background(), "ada", ReportOptions{})
	require.NoError(t, err)

	result, err := svc.Export(context.Background(), report, models.ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatCSV, result.Format)
	assert.Equal(t, "http://reports.local/export/"+result.Token, result.URL)
	assert.Contains(t, result.RelativePath, "ada_")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.reportExports.WithLabelValues("csv")))

	download, err := svc.ResolveDownload(result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ReportFormatCSV, download.Format)

	payload, err := io.ReadAll(download.File)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, "Course", records[0][0])
	assert.Equal(t, "Overall GPA", records[4][1])
	assert.Equal(t, "72.00%", records[4][4])
}

func TestReportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	svc := newTestReportService(t, newStudentSourceStub(), nil)
	_, err := svc.ResolveDownload("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestReportServiceExportWithoutStorage(t *testing.T) {
	svc := NewReportService(newStudentSourceStub(testStudent(t, "ada", "Ada")), nil, nil, nil, nil, nil, ReportServiceConfig{})
	report, err := svc.Generate(context.Background(), "ada", ReportOptions{})
	require.NoError(t, err)
	_, err = svc.Export(context.Background(), report, models.ReportFormatText)
	assert.Error(t, err)

	deleted, err := svc.Cleanup(time.Hour)
	assert.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report", sanitizeFilename(""))
	assert.Equal(t, "a_b-c", sanitizeFilename("a b/c"))
}
