package export

import (
	"fmt"
	"strconv"

	"github.com/noah-isme/sma-report-card/internal/models"
)

// Detailed table column names.
const (
	ColumnCourse        = "Course"
	ColumnItem          = "Assignment/Module"
	ColumnScore         = "Score"
	ColumnWeight        = "Weight"
	ColumnWeightedScore = "Weighted Score"
)

// DetailedHeaders is the column set of the cross-course table.
var DetailedHeaders = []string{ColumnCourse, ColumnItem, ColumnScore, ColumnWeight, ColumnWeightedScore}

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// ReportDataset flattens the detailed rows of a report into a dataset.
func ReportDataset(report models.ReportData) Dataset {
	rows := make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, map[string]string{
			ColumnCourse:        row.Course,
			ColumnItem:          row.Item,
			ColumnScore:         formatPercent(row.Score),
			ColumnWeight:        formatPercent(row.Weight),
			ColumnWeightedScore: formatFixedPercent(row.WeightedScore),
		})
	}
	return Dataset{Headers: DetailedHeaders, Rows: rows}
}

// formatPercent prints the shortest exact form, e.g. 100% or 40.59%.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func formatFixedPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// GPALine formats the overall GPA on the report's scale.
func GPALine(report models.ReportData) string {
	if report.GPAScale == models.GPAScaleFourPoint {
		return fmt.Sprintf("Overall GPA: %.2f / %.2f", report.GPA, report.GPAScale.Max())
	}
	return fmt.Sprintf("Overall GPA: %.2f%%", report.GPA)
}

// SummaryLines are the headline figures printed above exported tables.
func SummaryLines(report models.ReportData) []string {
	return []string{
		fmt.Sprintf("Student: %s (%s)", report.StudentName, report.StudentEmail),
		GPALine(report),
		fmt.Sprintf("Overall Average Score: %.2f%%", report.OverallAverage),
	}
}

// SummaryFooter places the GPA and average under the weighted score column.
func SummaryFooter(report models.ReportData) [][]string {
	gpa := formatFixedPercent(report.GPA)
	if report.GPAScale == models.GPAScaleFourPoint {
		gpa = fmt.Sprintf("%.2f", report.GPA)
	}
	return [][]string{
		{"", "Overall GPA", "", "", gpa},
		{"", "Overall Average Score", "", "", formatFixedPercent(report.OverallAverage)},
	}
}
