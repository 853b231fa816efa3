package models

import "time"

// ModelSession is a persisted modeling session: the chat transcript, the
// revision snapshots and the cursor, so a session survives a restart.
type ModelSession struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:255;not null;uniqueIndex"`
	CurrentCode    string `gorm:"type:text"`
	SnapshotsJSON  string `gorm:"type:text"`
	Cursor         int    `gorm:"not null;default:-1"`
	TranscriptJSON string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
