package models

import (
	"sort"
	"strings"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// Progression thresholds are inclusive percentages of each group's weight.
const (
	FormativePassThreshold = 30.0
	SummativePassThreshold = 20.0

	// ResubmissionScoreCeiling is the exclusive upper score bound for
	// resubmission and retake eligibility.
	ResubmissionScoreCeiling = 50.0
)

// SortOrder controls transcript ordering.
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// ParseSortOrder accepts asc/ascending and desc/descending; empty means ascending.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unknown sort order "+raw)
}

// Progression is the pass/fail outcome of a course.
type Progression struct {
	Passed       bool    `json:"passed"`
	FormativePct float64 `json:"formative_pct"`
	SummativePct float64 `json:"summative_pct"`
}

// GroupTotal sums one category of a course.
type GroupTotal struct {
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// CourseRecord holds the graded items and attendance for one course.
type CourseRecord struct {
	Name          string            `db:"name" json:"name"`
	TotalSessions int               `db:"total_sessions" json:"total_sessions"`
	Items         []GradedItem      `json:"items"`
	Attendance    []AttendanceEntry `json:"attendance,omitempty"`
}

// NewCourseRecord creates an empty course. totalSessions may be zero when
// attendance is not tracked.
func NewCourseRecord(name string, totalSessions int) *CourseRecord {
	return &CourseRecord{Name: name, TotalSessions: totalSessions}
}

// AddItem appends an item. Names are not deduplicated.
func (c *CourseRecord) AddItem(item GradedItem) {
	c.Items = append(c.Items, item)
}

// MarkAttendance records a session.
func (c *CourseRecord) MarkAttendance(date string, status AttendanceStatus) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidGradeData, "unknown attendance status "+string(status))
	}
	c.Attendance = append(c.Attendance, AttendanceEntry{Date: date, Status: status})
	return nil
}

// TracksAttendance reports whether the course has mandatory sessions.
func (c *CourseRecord) TracksAttendance() bool {
	return c.TotalSessions > 0
}

// PresentCount counts sessions marked present.
func (c *CourseRecord) PresentCount() int {
	present := 0
	for _, entry := range c.Attendance {
		if entry.Status == AttendanceStatusPresent {
			present++
		}
	}
	return present
}

// AttendancePercentage is present sessions over mandatory sessions. It is not
// capped, so over-marked courses can exceed 100.
func (c *CourseRecord) AttendancePercentage() float64 {
	return SafePercentage(float64(c.PresentCount()), float64(c.TotalSessions))
}

// GroupTotal sums weight and weighted score for one category.
func (c *CourseRecord) GroupTotal(category Category) GroupTotal {
	var total GroupTotal
	for _, item := range c.Items {
		if item.Category != category {
			continue
		}
		total.Weight += item.Weight
		total.WeightedScore += item.WeightedScore()
	}
	return total
}

// CheckProgression applies the formative and summative pass thresholds.
func (c *CourseRecord) CheckProgression() Progression {
	formative := c.GroupTotal(CategoryFormative)
	summative := c.GroupTotal(CategorySummative)

	p := Progression{
		FormativePct: SafePercentage(formative.WeightedScore, formative.Weight),
		SummativePct: SafePercentage(summative.WeightedScore, summative.Weight),
	}
	p.Passed = p.FormativePct >= FormativePassThreshold && p.SummativePct >= SummativePassThreshold
	return p
}

// ResubmissionCandidates lists formative items scoring below the ceiling.
func (c *CourseRecord) ResubmissionCandidates() []string {
	names := make([]string, 0)
	for _, item := range c.Items {
		if item.Category == CategoryFormative && item.Score < ResubmissionScoreCeiling {
			names = append(names, item.Name)
		}
	}
	return names
}

// RetakeCandidates lists every item scoring below the ceiling.
func (c *CourseRecord) RetakeCandidates() []string {
	names := make([]string, 0)
	for _, item := range c.Items {
		if item.Score < ResubmissionScoreCeiling {
			names = append(names, item.Name)
		}
	}
	return names
}

// AverageScore is the unweighted mean score.
func (c *CourseRecord) AverageScore() float64 {
	var sum float64
	for _, item := range c.Items {
		sum += item.Score
	}
	return SafeRatio(sum, float64(len(c.Items)))
}

// Transcript returns a copy of the items sorted by score. Descending order
// flips the comparator rather than the result, so tied scores keep their
// insertion order either way.
func (c *CourseRecord) Transcript(order SortOrder) []GradedItem {
	sorted := make([]GradedItem, len(c.Items))
	copy(sorted, c.Items)
	less := func(i, j int) bool { return sorted[i].Score < sorted[j].Score }
	if order == SortDescending {
		less = func(i, j int) bool { return sorted[i].Score > sorted[j].Score }
	}
	sort.SliceStable(sorted, less)
	return sorted
}
