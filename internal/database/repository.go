package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/launchdeck/launchdeck/internal/models"
)

// Repository handles all database operations for launch history and errors
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// RecordLaunch bumps the recents entry for target, creating it on first use
func (r *Repository) RecordLaunch(target, mode string, at time.Time) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var rec models.LaunchRecord
		result := tx.Where("target_name = ?", target).First(&rec)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tx.Create(&models.LaunchRecord{
				TargetName: target,
				Mode:       mode,
				LastRunAt:  at,
				RunCount:   1,
			}).Error
		}
		if result.Error != nil {
			return result.Error
		}

		return tx.Model(&rec).Updates(map[string]interface{}{
			"mode":        mode,
			"last_run_at": at,
			"run_count":   gorm.Expr("run_count + 1"),
		}).Error
	})
	if err != nil {
		return errors.Wrapf(err, "failed to record launch of %s", target)
	}
	return nil
}

// Recent returns up to limit records, most recently launched first
func (r *Repository) Recent(limit int) ([]*models.LaunchRecord, error) {
	var records []*models.LaunchRecord
	result := r.db.Order("last_run_at DESC").Order("id DESC").Limit(limit).Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent launches")
	}
	return records, nil
}

// RecentNames returns up to limit target names, most recently launched first
func (r *Repository) RecentNames(limit int) ([]string, error) {
	records, err := r.Recent(limit)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.TargetName)
	}
	return names, nil
}

// GetLatest retrieves the most recently launched record
func (r *Repository) GetLatest() (*models.LaunchRecord, error) {
	var rec models.LaunchRecord
	result := r.db.Order("last_run_at DESC").First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest launch")
	}
	return &rec, nil
}

// Forget removes target from the recents list
func (r *Repository) Forget(target string) (int64, error) {
	result := r.db.Where("target_name = ?", target).Delete(&models.LaunchRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to forget launch record")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// ErrorsSince returns error logs recorded since a given time, oldest first
func (r *Repository) ErrorsSince(since time.Time) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all launch records from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM launch_records")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear launch records")
	}
	return nil
}
