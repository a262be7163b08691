package models

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// ReportFormat is an output format for a rendered report.
type ReportFormat string

const (
	ReportFormatText ReportFormat = "txt"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// ParseReportFormat accepts txt/text, csv and pdf; empty means text.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "txt", "text":
		return ReportFormatText, nil
	case "csv":
		return ReportFormatCSV, nil
	case "pdf":
		return ReportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unsupported format "+raw)
}

// ContentType is the MIME type served for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatCSV:
		return "text/csv"
	case ReportFormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ReportData is the computed, unformatted content of a student report.
type ReportData struct {
	StudentID      string         `json:"student_id,omitempty"`
	StudentName    string         `json:"student_name"`
	StudentEmail   string         `json:"student_email"`
	SortOrder      SortOrder      `json:"sort_order"`
	GPAScale       GPAScale       `json:"gpa_scale"`
	GPA            float64        `json:"gpa"`
	OverallAverage float64        `json:"overall_average"`
	Courses        []CourseReport `json:"courses"`
	Rows           []ReportRow    `json:"rows"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// CourseReport summarises a single course.
type CourseReport struct {
	Name             string       `json:"name"`
	Progression      Progression  `json:"progression"`
	Formative        GroupTotal   `json:"formative"`
	Summative        GroupTotal   `json:"summative"`
	Module           GroupTotal   `json:"module"`
	Resubmissions    []string     `json:"resubmissions"`
	Retakes          []string     `json:"retakes"`
	AverageScore     float64      `json:"average_score"`
	TracksAttendance bool         `json:"tracks_attendance"`
	AttendancePct    float64      `json:"attendance_pct"`
	SessionsPresent  int          `json:"sessions_present"`
	TotalSessions    int          `json:"total_sessions"`
	Transcript       []GradedItem `json:"transcript"`
}

// HasModules reports whether any transcript item is an untyped module.
func (c CourseReport) HasModules() bool {
	for _, item := range c.Transcript {
		if item.Category == CategoryModule {
			return true
		}
	}
	return false
}

// ReportRow is one line of the cross-course detailed table.
type ReportRow struct {
	Course        string   `json:"course"`
	Item          string   `json:"item"`
	Category      Category `json:"category"`
	Score         float64  `json:"score"`
	Weight        float64  `json:"weight"`
	WeightedScore float64  `json:"weighted_score"`
}
