package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
)

const (
	headerRuleWidth  = 40
	sectionRuleWidth = 60
)

// TranscriptHeaders is the column set of the per-course transcript table.
var TranscriptHeaders = []string{"Assignment", "Type", "Score (%)", "Weight (%)"}

// TextRenderer formats report data as a plain-text block suitable for a
// terminal or a text/plain email body.
type TextRenderer struct {
	attendance models.AttendanceRule
	logger     *zap.Logger
}

// NewTextRenderer builds a renderer applying the given attendance policy.
func NewTextRenderer(rule models.AttendanceRule) *TextRenderer {
	if rule.Mode == "" {
		rule = models.DefaultAttendanceRule()
	}
	return &TextRenderer{attendance: rule, logger: zap.NewNop()}
}

// WithLogger sets the logger used to report table rendering failures.
func (r *TextRenderer) WithLogger(logger *zap.Logger) *TextRenderer {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Render produces the full report text. A table that fails to render is
// logged and left partial.
func (r *TextRenderer) Render(report models.ReportData) string {
	out, err := r.RenderChecked(report)
	if err != nil {
		r.logger.Warn("report table rendering failed", zap.String("student", report.StudentName), zap.Error(err))
	}
	return out
}

// RenderChecked is Render that also returns the first table error.
func (r *TextRenderer) RenderChecked(report models.ReportData) (string, error) {
	var b strings.Builder
	var firstErr error

	fmt.Fprintf(&b, "Report for %s (%s)\n", report.StudentName, report.StudentEmail)
	b.WriteString(strings.Repeat("=", headerRuleWidth) + "\n")

	for _, course := range report.Courses {
		if err := r.writeCourse(&b, course); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	b.WriteString("\n" + GPALine(report) + "\n")
	fmt.Fprintf(&b, "Overall Average Score: %.2f%%\n", report.OverallAverage)
	b.WriteString(strings.Repeat("=", headerRuleWidth) + "\n")

	b.WriteString("\nDetailed Report:\n")
	dataset := ReportDataset(report)
	rows := make([][]string, 0, len(dataset.Rows))
	for _, row := range dataset.Rows {
		record := make([]string, len(dataset.Headers))
		for i, header := range dataset.Headers {
			record[i] = row[header]
		}
		rows = append(rows, record)
	}
	table, err := renderTable(dataset.Headers, rows, []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight})
	b.WriteString(table)
	if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("detailed table: %w", err)
	}

	return b.String(), firstErr
}

func (r *TextRenderer) writeCourse(b *strings.Builder, course models.CourseReport) error {
	fmt.Fprintf(b, "\nCourse: %s\n", course.Name)
	fmt.Fprintf(b, "Formative Group Total: %.2f%%\n", course.Progression.FormativePct)
	fmt.Fprintf(b, "Summative Group Total: %.2f%%\n", course.Progression.SummativePct)
	fmt.Fprintf(b, "Passed: %s\n", yesNo(course.Progression.Passed))

	if len(course.Resubmissions) > 0 {
		fmt.Fprintf(b, "Eligible for Resubmission: %s\n", strings.Join(course.Resubmissions, ", "))
	} else {
		b.WriteString("No Resubmissions Needed.\n")
	}

	if course.HasModules() {
		fmt.Fprintf(b, "Average Score: %.2f%%\n", course.AverageScore)
		if len(course.Retakes) > 0 {
			fmt.Fprintf(b, "Retake Required: %s\n", strings.Join(course.Retakes, ", "))
		} else {
			b.WriteString("No Retakes Required.\n")
		}
	}

	if course.TracksAttendance {
		fmt.Fprintf(b, "Attendance: %.2f%% (%d/%d sessions)\n", course.AttendancePct, course.SessionsPresent, course.TotalSessions)
		b.WriteString(r.attendanceMessage(course.AttendancePct) + "\n")
	}

	b.WriteString("\nTranscript Breakdown:\n")
	rows := make([][]string, 0, len(course.Transcript))
	for _, item := range course.Transcript {
		rows = append(rows, []string{item.Name, string(item.Category), formatPercent(item.Score), formatPercent(item.Weight)})
	}
	table, err := renderTable(TranscriptHeaders, rows, []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight})
	b.WriteString(table)
	b.WriteString(strings.Repeat("-", sectionRuleWidth) + "\n")
	if err != nil {
		return fmt.Errorf("transcript table for %s: %w", course.Name, err)
	}
	return nil
}

func (r *TextRenderer) attendanceMessage(pct float64) string {
	if r.attendance.Satisfactory(pct) {
		if r.attendance.Mode == models.AttendanceModeExact {
			return "Full attendance recorded."
		}
		return "Attendance is satisfactory."
	}
	if r.attendance.Mode == models.AttendanceModeExact {
		return fmt.Sprintf("Warning: Attendance is not %s%%. The student missed mandatory sessions.", trimFloat(r.attendance.Threshold))
	}
	return fmt.Sprintf("Warning: Attendance is below %s%%. The student should attend more classes.", trimFloat(r.attendance.Threshold))
}

// renderTable draws a grid table. Header text is printed as given.
func renderTable(headers []string, rows [][]string, align []tw.Align) (string, error) {
	buf := &bytes.Buffer{}
	table := tablewriter.NewTable(buf, tablewriter.WithConfig(tablewriter.Config{
		Header: tw.CellConfig{
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{PerColumn: align},
		},
	}))
	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	table.Header(head...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := table.Append(cells...); err != nil {
			return buf.String(), fmt.Errorf("append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return buf.String(), fmt.Errorf("render table: %w", err)
	}
	return buf.String(), nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(formatPercent(v), "%")
}
