package models

import "time"

type AppSettings struct {
	ID            uint   `gorm:"primaryKey"` // single-row table (ID=1)
	Version       int    `gorm:"not null;default:1"`
	Theme         string `gorm:"not null;default:system"` // "light" | "dark" | "system"
	ShowMeshEdges bool   `gorm:"not null;default:true"`
	ModelName     string `gorm:"size:255"` // Gemini model; empty means the built-in default
	UpdatedAt     time.Time
}
