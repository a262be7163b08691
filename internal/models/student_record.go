package models

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// GPAScale selects how the weighted ratio is expressed.
type GPAScale string

const (
	// GPAScalePercent expresses GPA on 0-100.
	GPAScalePercent GPAScale = "percent"
	// GPAScaleFourPoint expresses GPA on 0-4.
	GPAScaleFourPoint GPAScale = "four_point"
)

// Max is the top of the scale.
func (s GPAScale) Max() float64 {
	if s == GPAScaleFourPoint {
		return 4
	}
	return 100
}

// ParseGPAScale accepts percent or four_point (also "4.0"); empty means percent.
func ParseGPAScale(raw string) (GPAScale, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "percent", "percentage":
		return GPAScalePercent, nil
	case "four_point", "4.0", "4":
		return GPAScaleFourPoint, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unknown gpa scale "+raw)
}

// StudentRecord owns the courses of one student.
type StudentRecord struct {
	ID      string          `db:"id" json:"id"`
	Name    string          `db:"full_name" json:"name"`
	Email   string          `db:"email" json:"email"`
	Courses []*CourseRecord `json:"courses"`
}

// NewStudentRecord creates a student with no courses.
func NewStudentRecord(name, email string) *StudentRecord {
	return &StudentRecord{Name: name, Email: email}
}

// AddCourse appends a course.
func (s *StudentRecord) AddCourse(course *CourseRecord) {
	s.Courses = append(s.Courses, course)
}

func (s *StudentRecord) weightedRatio() float64 {
	var weighted, weight float64
	for _, course := range s.Courses {
		for _, item := range course.Items {
			weighted += item.WeightedScore()
			weight += item.Weight
		}
	}
	return SafeRatio(weighted, weight)
}

// CalculateGPA is total weighted score over total weight as a percentage.
func (s *StudentRecord) CalculateGPA() float64 {
	return s.GPA(GPAScalePercent)
}

// GPA expresses the weighted ratio on the requested scale.
func (s *StudentRecord) GPA(scale GPAScale) float64 {
	return s.weightedRatio() * scale.Max()
}

// OverallAverage is the unweighted mean of every item score.
func (s *StudentRecord) OverallAverage() float64 {
	var sum float64
	var count int
	for _, course := range s.Courses {
		for _, item := range course.Items {
			sum += item.Score
			count++
		}
	}
	return SafeRatio(sum, float64(count))
}

// BuildReport computes every figure a report needs without formatting any of it.
func (s *StudentRecord) BuildReport(order SortOrder, scale GPAScale) ReportData {
	if order == "" {
		order = SortAscending
	}
	if scale == "" {
		scale = GPAScalePercent
	}
	report := ReportData{
		StudentID:    s.ID,
		StudentName:  s.Name,
		StudentEmail: s.Email,
		SortOrder:    order,
		GPAScale:     scale,
		Courses:      make([]CourseReport, 0, len(s.Courses)),
		Rows:         make([]ReportRow, 0),
		GeneratedAt:  time.Now().UTC(),
	}

	for _, course := range s.Courses {
		cr := CourseReport{
			Name:             course.Name,
			Progression:      course.CheckProgression(),
			Formative:        course.GroupTotal(CategoryFormative),
			Summative:        course.GroupTotal(CategorySummative),
			Module:           course.GroupTotal(CategoryModule),
			Resubmissions:    course.ResubmissionCandidates(),
			Retakes:          course.RetakeCandidates(),
			AverageScore:     course.AverageScore(),
			Transcript:       course.Transcript(order),
			TracksAttendance: course.TracksAttendance(),
		}
		if cr.TracksAttendance {
			cr.AttendancePct = course.AttendancePercentage()
			cr.SessionsPresent = course.PresentCount()
			cr.TotalSessions = course.TotalSessions
		}
		report.Courses = append(report.Courses, cr)

		for _, item := range course.Items {
			report.Rows = append(report.Rows, ReportRow{
				Course:        course.Name,
				Item:          item.Name,
				Category:      item.Category,
				Score:         item.Score,
				Weight:        item.Weight,
				WeightedScore: item.WeightedScore(),
			})
		}
	}

	report.GPA = s.GPA(scale)
	report.OverallAverage = s.OverallAverage()
	return report
}
