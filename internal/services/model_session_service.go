package services

import (
	"context"
	"fmt"
	"strings"

	"automodel/internal/models"
	"automodel/internal/repositories"
)

type ModelSessionService interface {
	Startup(ctx context.Context)
	List() ([]models.ModelSession, error)
	Save(name, currentCode, snapshotsJSON string, cursor int, transcriptJSON string) (*models.ModelSession, error)
	Load(name string) (*models.ModelSession, error)
	Delete(name string) error
	DeleteAll() error
}

type modelSessionService struct {
	repo repositories.ModelSessionRepository
	ctx  context.Context
}

func NewModelSessionService(repo repositories.ModelSessionRepository) ModelSessionService {
	return &modelSessionService{repo: repo}
}

func (s *modelSessionService) Startup(ctx context.Context) {
	s.ctx = ctx
}

func (s *modelSessionService) List() ([]models.ModelSession, error) {
	return s.repo.List()
}

func (s *modelSessionService) Save(name, currentCode, snapshotsJSON string, cursor int, transcriptJSON string) (*models.ModelSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	return s.repo.Upsert(name, currentCode, snapshotsJSON, cursor, transcriptJSON)
}

func (s *modelSessionService) Load(name string) (*models.ModelSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	return s.repo.GetByName(name)
}

func (s *modelSessionService) Delete(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("session name is required")
	}
	return s.repo.DeleteByName(name)
}

func (s *modelSessionService) DeleteAll() error {
	return s.repo.DeleteAll()
}
