package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttendanceStatus(t *testing.T) {
	status, err := ParseAttendanceStatus("PRESENT")
	require.NoError(t, err)
	assert.Equal(t, AttendanceStatusPresent, status)

	status, err = ParseAttendanceStatus("absent")
	require.NoError(t, err)
	assert.Equal(t, AttendanceStatusAbsent, status)

	_, err = ParseAttendanceStatus("excused")
	assert.Error(t, err)
}

func TestAttendanceRuleMinimum(t *testing.T) {
	rule := DefaultAttendanceRule()
	assert.False(t, rule.Satisfactory(74.99))
	assert.True(t, rule.Satisfactory(75))
	assert.True(t, rule.Satisfactory(120))
}

func TestAttendanceRuleExact(t *testing.T) {
	rule, err := NewAttendanceRule("EXACT", 100)
	require.NoError(t, err)
	assert.True(t, rule.Satisfactory(100))
	assert.False(t, rule.Satisfactory(85.71))
	assert.False(t, rule.Satisfactory(114.28))
}

func TestNewAttendanceRuleRejectsBadInput(t *testing.T) {
	_, err := NewAttendanceRule("sometimes", 50)
	assert.Error(t, err)
	_, err = NewAttendanceRule("minimum", -1)
	assert.Error(t, err)

	rule, err := NewAttendanceRule("", 60)
	require.NoError(t, err)
	assert.Equal(t, AttendanceModeMinimum, rule.Mode)
}
