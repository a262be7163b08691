package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportFormat(t *testing.T) {
	for raw, want := range map[string]ReportFormat{"": ReportFormatText, "TEXT": ReportFormatText, "csv": ReportFormatCSV, " pdf ": ReportFormatPDF} {
		got, err := ParseReportFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseReportFormat("xlsx")
	assert.Error(t, err)
}

func TestReportFormatContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ReportFormatPDF.ContentType())
	assert.Equal(t, "text/csv", ReportFormatCSV.ContentType())
	assert.Contains(t, ReportFormatText.ContentType(), "text/plain")
}

func TestTrackingStatusConfirmed(t *testing.T) {
	assert.False(t, TrackingStatus{}.Confirmed())
}
