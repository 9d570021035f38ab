package reporter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdeck/launchdeck/internal/models"
)

type fakeStore struct {
	records []*models.LaunchRecord
	errs    []*models.ErrorLog
}

func (s *fakeStore) Recent(limit int) ([]*models.LaunchRecord, error) {
	return s.records, nil
}

func (s *fakeStore) ErrorsSince(since time.Time) ([]*models.ErrorLog, error) {
	var out []*models.ErrorLog
	for _, e := range s.errs {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Wednesday
var now = time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)

func newTestReporter() *Reporter {
	store := &fakeStore{
		records: []*models.LaunchRecord{
			{TargetName: "ERP", Mode: "primary", LastRunAt: now.Add(-30 * time.Minute), RunCount: 5},
			{TargetName: "Payroll", Mode: "maintenance", LastRunAt: now.AddDate(0, 0, -2), RunCount: 1},
			{TargetName: "Archive", Mode: "primary", LastRunAt: now.AddDate(0, -2, 0), RunCount: 9},
		},
		errs: []*models.ErrorLog{
			{Timestamp: now.Add(-time.Hour), Operation: "launch", Target: "ERP", ErrorMsg: "executable not found"},
			{Timestamp: now.Add(-2 * time.Hour), Operation: "close", Target: "1cv8.exe", ErrorMsg: "access denied"},
			{Timestamp: now.Add(-3 * time.Hour), Operation: "launch", Target: "Notes", ErrorMsg: "executable not found"},
		},
	}
	r := New(store)
	r.now = func() time.Time { return now }
	return r
}

func TestGetPeriod(t *testing.T) {
	r := newTestReporter()

	tests := []struct {
		period string
		start  time.Time
		end    time.Time
	}{
		{"day", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			p, err := r.getPeriod(tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.start, p.Start)
			assert.Equal(t, tt.end, p.End)
		})
	}

	_, err := r.getPeriod("year")
	assert.Error(t, err)
}

func TestGenerateReport(t *testing.T) {
	r := newTestReporter()

	day, err := r.GenerateReport("day")
	require.NoError(t, err)
	require.Len(t, day.Launches, 1)
	assert.Equal(t, "ERP", day.Launches[0].TargetName)
	assert.Len(t, day.Failures, 3)
	assert.Equal(t, map[string]int{"launch": 2, "close": 1}, day.ByOperation)

	week, err := r.GenerateReport("week")
	require.NoError(t, err)
	assert.Len(t, week.Launches, 2)
}

func TestFormatReport(t *testing.T) {
	r := newTestReporter()
	report, err := r.GenerateReport("day")
	require.NoError(t, err)

	text := r.FormatReportText(report)
	assert.Contains(t, text, "Launch Report - day")
	assert.Contains(t, text, "30m ago")
	assert.Contains(t, text, "Failures: 3 (close 1, launch 2)")

	out, err := r.FormatReportJSON(report)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "failures_by_operation")
}

func TestEmptyReport(t *testing.T) {
	r := New(&fakeStore{})
	r.now = func() time.Time { return now }

	report, err := r.GenerateReport("month")
	require.NoError(t, err)
	text := r.FormatReportText(report)
	assert.Contains(t, text, "No launches recorded for this period.")
	assert.NotContains(t, text, "Failures")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Бухгалтерия", truncate("Бухгалтерия", 20))
	assert.Equal(t, "Бухга...", truncate("Бухгалтерия", 8))
}
