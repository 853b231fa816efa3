package services

import (
	"context"

	"gorm.io/gorm"

	"automodel/internal/repositories"
)

// DbServices aggregates all domain services backed by the database.
type DbServices struct {
	AppSettings AppSettingsService
	Sessions    ModelSessionService
}

// NewDbServices constructs the service container using repositories backed by db.
func NewDbServices(db *gorm.DB) *DbServices {
	settingsRepo := repositories.NewAppSettingsRepository(db)
	sessionRepo := repositories.NewModelSessionRepository(db)

	return &DbServices{
		AppSettings: NewAppSettingsService(settingsRepo),
		Sessions:    NewModelSessionService(sessionRepo),
	}
}

func (d *DbServices) StartDbServices(ctx context.Context) {
	d.AppSettings.Startup(ctx)
	d.Sessions.Startup(ctx)
}
