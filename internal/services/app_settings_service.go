package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"automodel/internal/models"
	"automodel/internal/repositories"
)

type AppSettingsService interface {
	Startup(ctx context.Context)
	Get() (*models.AppSettings, error)
	UpdateTheme(theme string) (*models.AppSettings, error)
	SetShowMeshEdges(show bool) (*models.AppSettings, error)
	SetModelName(name string) (*models.AppSettings, error)
}

type appSettingsService struct {
	appSettings repositories.AppSettingsRepository
	context     context.Context
}

func NewAppSettingsService(appSettings repositories.AppSettingsRepository) AppSettingsService {
	return &appSettingsService{appSettings: appSettings}
}

func (s *appSettingsService) Startup(ctx context.Context) {
	s.context = ctx
}

func (s *appSettingsService) Get() (*models.AppSettings, error) {
	return s.appSettings.Get(context.Background())
}

func (s *appSettingsService) UpdateTheme(theme string) (*models.AppSettings, error) {
	if theme == "" {
		return nil, errors.New("theme is required")
	}
	if theme != "light" && theme != "dark" && theme != "system" {
		return nil, errors.New("theme must be 'light', 'dark', or 'system'")
	}
	return s.apply(func(cur *models.AppSettings) {
		cur.Theme = theme
	})
}

// SetShowMeshEdges persists the viewer's mesh-edge toggle.
func (s *appSettingsService) SetShowMeshEdges(show bool) (*models.AppSettings, error) {
	return s.apply(func(cur *models.AppSettings) {
		cur.ShowMeshEdges = show
	})
}

// SetModelName selects the Gemini model used for generation; an empty
// name falls back to the built-in default.
func (s *appSettingsService) SetModelName(name string) (*models.AppSettings, error) {
	return s.apply(func(cur *models.AppSettings) {
		cur.ModelName = strings.TrimSpace(name)
	})
}

func (s *appSettingsService) apply(mutate func(*models.AppSettings)) (*models.AppSettings, error) {
	current, err := s.appSettings.Get(context.Background())
	if err != nil {
		return nil, err
	}

	mutate(current)
	current.UpdatedAt = time.Now()

	if err := s.appSettings.Update(context.Background(), current); err != nil {
		return nil, err
	}
	return current, nil
}
