package models

import "time"

// VersionedModel carries the optimistic-locking version and timestamps of an
// aggregate row. Version starts at 1 on insert and is bumped by one on every
// successful update.
type VersionedModel struct {
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
