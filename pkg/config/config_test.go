package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, SourceFile, cfg.Source)
	assert.Equal(t, "ascending", cfg.Reports.SortOrder)
	assert.Equal(t, "percent", cfg.Reports.GPAScale)
	assert.Equal(t, "minimum", cfg.Attendance.Mode)
	assert.InDelta(t, 75.0, cfg.Attendance.Threshold, 1e-9)
	assert.Equal(t, MailProviderConsole, cfg.Mail.Provider)
	assert.Equal(t, 0, cfg.Mail.Retries)
	assert.Equal(t, StoreMemory, cfg.Tracking.Store)
	assert.Equal(t, 24*time.Hour, cfg.Reports.SignedURLTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ATTENDANCE_MODE", "EXACT")
	t.Setenv("ATTENDANCE_THRESHOLD", "100")
	t.Setenv("REPORT_GPA_SCALE", "four_point")
	t.Setenv("MAIL_PROVIDER", "SendGrid")
	t.Setenv("TRACKING_BASE_URL", "https://reports.example.com/")
	t.Setenv("REPORTS_SIGNED_URL_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "exact", cfg.Attendance.Mode)
	assert.InDelta(t, 100.0, cfg.Attendance.Threshold, 1e-9)
	assert.Equal(t, "four_point", cfg.Reports.GPAScale)
	assert.Equal(t, MailProviderSendGrid, cfg.Mail.Provider)
	assert.Equal(t, "https://reports.example.com", cfg.Tracking.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Reports.SignedURLTTL)
}
