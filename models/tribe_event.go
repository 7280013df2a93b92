package models

import "time"

// TribeEvent is a persisted classified log event. Exact dedupe rides on the
// (user_id, event_hash) composite unique index; OCR-tolerant dedupe rides on
// the (user_id, event_hash_v2) composite unique index. EventHashV2 is a
// pointer so rows without a v2 hash store NULL, which keeps them out of the
// v2 uniqueness check.
type TribeEvent struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint `gorm:"not null;uniqueIndex:idx_user_event_hash;uniqueIndex:idx_user_event_hash_v2"`
	User      User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CaptureID *uint `gorm:"index"`

	Server   string `gorm:"size:128;index"`
	Tribe    string `gorm:"size:128;index"`
	ArkDay   int    `gorm:"index"`
	ArkTime  string `gorm:"size:16"`
	Severity string `gorm:"size:16;index"`
	Category string `gorm:"size:64;index"`
	Actor    string `gorm:"size:255"`
	Message  string `gorm:"size:1024;not null"`
	RawLine  string `gorm:"size:2048"`

	EventHash      string  `gorm:"size:40;not null;uniqueIndex:idx_user_event_hash"`
	EventHashV2    *string `gorm:"size:64;uniqueIndex:idx_user_event_hash_v2"`
	NormalizedText string  `gorm:"size:1024"`
	Fingerprint    int64   `gorm:"index"`
}
