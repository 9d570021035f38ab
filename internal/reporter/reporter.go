package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/pkg/utils"
)

// historyScan bounds how many recents rows a report looks at
const historyScan = 1000

// Store is the history a report reads
type Store interface {
	Recent(limit int) ([]*models.LaunchRecord, error)
	ErrorsSince(since time.Time) ([]*models.ErrorLog, error)
}

// Period is a half-open time range [Start, End)
type Period struct {
	Type  string    `json:"type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p Period) contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Report summarizes launches and failed operations in a period
type Report struct {
	Period      Period                 `json:"period"`
	Launches    []*models.LaunchRecord `json:"launches"`
	Failures    []*models.ErrorLog     `json:"failures"`
	ByOperation map[string]int         `json:"failures_by_operation"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Reporter handles report generation
type Reporter struct {
	store Store
	now   func() time.Time
}

// New creates a new reporter
func New(store Store) *Reporter {
	return &Reporter{store: store, now: time.Now}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	records, err := r.store.Recent(historyScan)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read launch history")
	}
	failures, err := r.store.ErrorsSince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read error log")
	}

	report := &Report{
		Period:      *period,
		Launches:    []*models.LaunchRecord{},
		Failures:    []*models.ErrorLog{},
		ByOperation: map[string]int{},
		GeneratedAt: r.now(),
	}
	for _, rec := range records {
		if period.contains(rec.LastRunAt) {
			report.Launches = append(report.Launches, rec)
		}
	}
	for _, f := range failures {
		if period.contains(f.Timestamp) {
			report.Failures = append(report.Failures, f)
			report.ByOperation[f.Operation]++
		}
	}

	return report, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*Period, error) {
	now := r.now()
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &Period{Start: start, End: end, Type: periodType}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Launch Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))

	if len(report.Launches) == 0 {
		b.WriteString("No launches recorded for this period.\n")
	} else {
		fmt.Fprintf(&b, "%-30s %-12s %8s %12s\n", "Target", "Mode", "Runs", "Last run")
		b.WriteString(strings.Repeat("-", 65) + "\n")
		for _, rec := range report.Launches {
			fmt.Fprintf(&b, "%-30s %-12s %8d %12s\n",
				truncate(rec.TargetName, 30),
				rec.Mode,
				rec.RunCount,
				utils.FormatAgo(rec.LastRunAt, report.GeneratedAt))
		}
	}

	if len(report.Failures) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "\nFailures: %d (", len(report.Failures))
	ops := make([]string, 0, len(report.ByOperation))
	for op := range report.ByOperation {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for i, op := range ops {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %d", op, report.ByOperation[op])
	}
	b.WriteString(")\n")
	for _, f := range report.Failures {
		fmt.Fprintf(&b, "  %s %-9s %-20s %s\n",
			f.Timestamp.Format("01-02 15:04"), f.Operation, truncate(f.Target, 20), f.ErrorMsg)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

// truncate truncates a string to the specified number of runes
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
