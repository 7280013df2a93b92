package models

import (
	"time"
)

// Capture records one ingested tribe-log screenshot and the outcome of its
// extraction. Failed captures are kept (not deleted) so they can be reviewed
// and reprocessed.
type Capture struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint   `gorm:"index;not null"`
	User      User   `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FileName  string `gorm:"size:255;not null"`
	StorePath string `gorm:"column:store_path;size:512"`
	Server    string `gorm:"size:128;index"`
	Tribe     string `gorm:"size:128;index"`

	// Extraction outcome.
	Engine        string  `gorm:"size:32"`
	Variant       string  `gorm:"size:32"`
	Confidence    float64 `gorm:""`
	LineCount     int     `gorm:""`
	EventCount    int     `gorm:""`
	NewEventCount int     `gorm:""`

	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
