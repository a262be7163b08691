package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-card/internal/models"
)

func sampleReport(t *testing.T, order models.SortOrder, scale models.GPAScale) models.ReportData {
	t.Helper()
	student := models.NewStudentRecord("Joseph Nishimwe", "j.nishimwe@example.com")

	programming := models.NewCourseRecord("Introduction to Programming", 7)
	for _, item := range []models.GradedItem{
		{Name: "Python - Hello, World", Score: 100, Weight: 10, Category: models.CategoryFormative},
		{Name: "Python - Inheritance", Score: 40.59, Weight: 20, Category: models.CategoryFormative},
		{Name: "Python - Data Structures", Score: 90, Weight: 30, Category: models.CategorySummative},
	} {
		programming.AddItem(item)
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, programming.MarkAttendance("Sep", models.AttendanceStatusPresent))
	}

	linux := models.NewCourseRecord("IT Tools and Linux", 0)
	linux.AddItem(models.GradedItem{Name: "Shell Module", Score: 45, Weight: 25, Category: models.CategoryModule})

	student.AddCourse(programming)
	student.AddCourse(linux)
	return student.BuildReport(order, scale)
}

func TestReportDataset(t *testing.T) {
	data := ReportDataset(sampleReport(t, models.SortAscending, models.GPAScalePercent))
	assert.Equal(t, []string{"Course", "Assignment/Module", "Score", "Weight", "Weighted Score"}, data.Headers)
	require.Len(t, data.Rows, 4)
	assert.Equal(t, "Python - Inheritance", data.Rows[1][ColumnItem])
	assert.Equal(t, "40.59%", data.Rows[1][ColumnScore])
	assert.Equal(t, "20%", data.Rows[1][ColumnWeight])
	assert.Equal(t, "8.12%", data.Rows[1][ColumnWeightedScore])
}

func TestCSVExporterRender(t *testing.T) {
	data := ReportDataset(sampleReport(t, models.SortAscending, models.GPAScalePercent))
	payload, err := NewCSVExporter().Render(data, []string{"Overall GPA", "", "", "", "80.00%"})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, DetailedHeaders, records[0])
	assert.Equal(t, "Python - Hello, World", records[1][1])
	assert.Equal(t, "Overall GPA", records[5][0])
}

func TestTSVExporterRender(t *testing.T) {
	payload, err := NewTSVExporter().Render(Dataset{Headers: []string{"a", "b"}, Rows: []map[string]string{{"a": "1", "b": "2"}}})
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n1\t2\n", string(payload))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "title")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := ReportDataset(sampleReport(t, models.SortAscending, models.GPAScalePercent))
	payload, err := NewPDFExporter().Render(data, "Report for Joseph Nishimwe", "Overall GPA: 80.00%")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestTextRendererSections(t *testing.T) {
	report := sampleReport(t, models.SortAscending, models.GPAScalePercent)
	out := NewTextRenderer(models.DefaultAttendanceRule()).Render(report)

	assert.True(t, strings.HasPrefix(out, "Report for Joseph Nishimwe (j.nishimwe@example.com)\n"+strings.Repeat("=", 40)))
	assert.Contains(t, out, "Course: Introduction to Programming\n")
	assert.Contains(t, out, "Formative Group Total: 60.39%")
	assert.Contains(t, out, "Summative Group Total: 90.00%")
	assert.Contains(t, out, "Passed: Yes")
	assert.Contains(t, out, "Eligible for Resubmission: Python - Inheritance")
	assert.Contains(t, out, "Attendance: 71.43% (5/7 sessions)")
	assert.Contains(t, out, "Warning: Attendance is below 75%. The student should attend more classes.")
	assert.Contains(t, out, "Retake Required: Shell Module")
	assert.Contains(t, out, "Overall GPA: ")
	assert.Contains(t, out, "Detailed Report:")
	assert.Contains(t, out, "40.59%")
	assert.Contains(t, out, "8.12%")
	assert.Contains(t, out, "Weighted Score")

	linux := out[strings.Index(out, "Course: IT Tools and Linux"):]
	assert.NotContains(t, linux[:strings.Index(linux, "Transcript Breakdown")], "Attendance:")
	assert.Contains(t, linux, "No Resubmissions Needed.")
}

func TestTextRendererKeepsHeaderText(t *testing.T) {
	report := sampleReport(t, models.SortAscending, models.GPAScalePercent)
	out, err := NewTextRenderer(models.DefaultAttendanceRule()).RenderChecked(report)
	require.NoError(t, err)

	detailed := out[strings.Index(out, "Detailed Report:"):]
	headerLine := strings.Split(detailed, "\n")[2]
	for _, header := range DetailedHeaders {
		assert.Contains(t, headerLine, " "+header+" ")
	}
	assert.Contains(t, headerLine, "Assignment/Module")
	assert.Contains(t, headerLine, "Weighted Score")

	transcript := out[strings.Index(out, "Transcript Breakdown:"):]
	transcriptHeader := strings.Split(transcript, "\n")[2]
	assert.Contains(t, transcriptHeader, "Score (%)")
	assert.Contains(t, transcriptHeader, "Weight (%)")

	assert.NotContains(t, out, "WEIGHTED SCORE")
	assert.NotContains(t, out, "ASSIGNMENT / MODULE")
	assert.NotContains(t, out, "SCORE  (%)")
}

func TestRenderTableReturnsRenderedGrid(t *testing.T) {
	out, err := renderTable([]string{"Course", "Weighted Score"}, [][]string{{"Math", "8.12%"}}, []tw.Align{tw.AlignLeft, tw.AlignRight})
	require.NoError(t, err)
	assert.Contains(t, out, "Weighted Score")
	assert.Contains(t, out, "8.12%")
}

func TestTextRendererTranscriptOrder(t *testing.T) {
	transcript := func(out string) string {
		start := strings.Index(out, "Transcript Breakdown:")
		end := strings.Index(out, "Course: IT Tools and Linux")
		require.True(t, start >= 0 && end > start)
		return out[start:end]
	}

	asc := transcript(NewTextRenderer(models.DefaultAttendanceRule()).Render(sampleReport(t, models.SortAscending, models.GPAScalePercent)))
	assert.Less(t, strings.Index(asc, "Python - Inheritance"), strings.Index(asc, "Python - Data Structures"))
	assert.Less(t, strings.Index(asc, "Python - Data Structures"), strings.Index(asc, "Python - Hello, World"))

	desc := transcript(NewTextRenderer(models.DefaultAttendanceRule()).Render(sampleReport(t, models.SortDescending, models.GPAScalePercent)))
	assert.Less(t, strings.Index(desc, "Python - Hello, World"), strings.Index(desc, "Python - Data Structures"))
	assert.Less(t, strings.Index(desc, "Python - Data Structures"), strings.Index(desc, "Python - Inheritance"))
}

func TestTextRendererExactAttendance(t *testing.T) {
	rule, err := models.NewAttendanceRule("exact", 100)
	require.NoError(t, err)
	out := NewTextRenderer(rule).Render(sampleReport(t, models.SortAscending, models.GPAScalePercent))
	assert.Contains(t, out, "Warning: Attendance is not 100%.")

	student := models.NewStudentRecord("Full", "full@example.com")
	course := models.NewCourseRecord("Perfect", 2)
	require.NoError(t, course.MarkAttendance("d1", models.AttendanceStatusPresent))
	require.NoError(t, course.MarkAttendance("d2", models.AttendanceStatusPresent))
	student.AddCourse(course)
	out = NewTextRenderer(rule).Render(student.BuildReport(models.SortAscending, models.GPAScalePercent))
	assert.Contains(t, out, "Full attendance recorded.")
}

func TestTextRendererFourPointScale(t *testing.T) {
	out := NewTextRenderer(models.AttendanceRule{}).Render(sampleReport(t, models.SortAscending, models.GPAScaleFourPoint))
	assert.Contains(t, out, " / 4.00")
}

func TestSummaryFooterAndLines(t *testing.T) {
	report := sampleReport(t, models.SortAscending, models.GPAScalePercent)
	footer := SummaryFooter(report)
	require.Len(t, footer, 2)
	assert.Equal(t, []string{"", "Overall GPA", "", "", "66.32%"}, footer[0])
	assert.Equal(t, "68.90%", footer[1][4])

	lines := SummaryLines(report)
	assert.Equal(t, "Student: Joseph Nishimwe (j.nishimwe@example.com)", lines[0])
	assert.Equal(t, "Overall GPA: 66.32%", lines[1])

	fourPoint := sampleReport(t, models.SortAscending, models.GPAScaleFourPoint)
	assert.Equal(t, "2.65", SummaryFooter(fourPoint)[0][4])
	assert.Equal(t, "Overall GPA: 2.65 / 4.00", GPALine(fourPoint))
}
