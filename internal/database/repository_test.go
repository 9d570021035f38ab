package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdeck/launchdeck/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

func TestRecordLaunch(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordLaunch("ERP", "ENTERPRISE", base))
	require.NoError(t, repo.RecordLaunch("HR", "ENTERPRISE", base.Add(time.Minute)))
	require.NoError(t, repo.RecordLaunch("ERP", "DESIGNER", base.Add(2*time.Minute)))

	records, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ERP", records[0].TargetName)
	assert.Equal(t, "DESIGNER", records[0].Mode)
	assert.Equal(t, int64(2), records[0].RunCount)
	assert.Equal(t, "HR", records[1].TargetName)
	assert.Equal(t, int64(1), records[1].RunCount)

	latest, err := repo.GetLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "ERP", latest.TargetName)
}

func TestRecentLimit(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"A", "B", "C", "D"} {
		require.NoError(t, repo.RecordLaunch(name, "ENTERPRISE", base.Add(time.Duration(i)*time.Second)))
	}

	records, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "D", records[0].TargetName)
	assert.Equal(t, "C", records[1].TargetName)

	names, err := repo.RecentNames(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B"}, names)
}

func TestForgetAndClear(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now().UTC()

	latest, err := repo.GetLatest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.RecordLaunch("A", "ENTERPRISE", now))
	require.NoError(t, repo.RecordLaunch("B", "ENTERPRISE", now))

	n, err := repo.Forget("A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Forget("A")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Clear())
	records, err := repo.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestErrorLog(t *testing.T) {
	repo := newTestRepository(t)
	since := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, repo.CreateErrorLog(&models.ErrorLog{
		Timestamp: time.Now().UTC(),
		Operation: "launch",
		Target:    "ERP",
		ErrorMsg:  "executable not found",
	}))

	logs, err := repo.ErrorsSince(since)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "launch", logs[0].Operation)
	assert.Equal(t, "executable not found", logs[0].ErrorMsg)
}
