package models

import "time"

// LaunchRecord is one row of the recently used list. A target has at most
// one record; every launch bumps LastRunAt and RunCount.
type LaunchRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TargetName string    `gorm:"not null;uniqueIndex" json:"target_name"`
	Mode       string    `gorm:"not null" json:"mode"`
	LastRunAt  time.Time `gorm:"not null;index" json:"last_run_at"`
	RunCount   int64     `gorm:"not null;default:0" json:"run_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
