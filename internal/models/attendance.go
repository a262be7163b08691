package models

import (
	"strings"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// ParseAttendanceStatus maps a case-insensitive label onto a status.
func ParseAttendanceStatus(raw string) (AttendanceStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "present":
		return AttendanceStatusPresent, nil
	case "absent":
		return AttendanceStatusAbsent, nil
	}
	return "", appErrors.Clone(appErrors.ErrInvalidGradeData, "unknown attendance status "+raw)
}

// AttendanceEntry is one marked session of a course.
type AttendanceEntry struct {
	Date   string           `db:"session_date" json:"date"`
	Status AttendanceStatus `db:"status" json:"status"`
}

// AttendanceMode selects how the attendance threshold is applied.
type AttendanceMode string

const (
	// AttendanceModeMinimum warns when attendance falls below the threshold.
	AttendanceModeMinimum AttendanceMode = "minimum"
	// AttendanceModeExact is satisfied only by attendance equal to the threshold.
	AttendanceModeExact AttendanceMode = "exact"
)

// AttendanceRule is the warning policy applied when a report is rendered.
type AttendanceRule struct {
	Mode      AttendanceMode `json:"mode"`
	Threshold float64        `json:"threshold"`
}

// DefaultAttendanceRule warns below 75%.
func DefaultAttendanceRule() AttendanceRule {
	return AttendanceRule{Mode: AttendanceModeMinimum, Threshold: 75}
}

// NewAttendanceRule validates a mode/threshold pair. An empty mode falls back to minimum.
func NewAttendanceRule(mode string, threshold float64) (AttendanceRule, error) {
	var m AttendanceMode
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", string(AttendanceModeMinimum):
		m = AttendanceModeMinimum
	case string(AttendanceModeExact):
		m = AttendanceModeExact
	default:
		return AttendanceRule{}, appErrors.Clone(appErrors.ErrValidation, "unknown attendance mode "+mode)
	}
	if threshold < 0 {
		return AttendanceRule{}, appErrors.Clone(appErrors.ErrValidation, "attendance threshold must not be negative")
	}
	return AttendanceRule{Mode: m, Threshold: threshold}, nil
}

// Satisfactory reports whether pct meets the rule.
func (r AttendanceRule) Satisfactory(pct float64) bool {
	if r.Mode == AttendanceModeExact {
		return pct == r.Threshold
	}
	return pct >= r.Threshold
}
