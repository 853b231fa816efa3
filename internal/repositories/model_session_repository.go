package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"automodel/internal/models"
)

type ModelSessionRepository interface {
	List() ([]models.ModelSession, error)
	GetByName(name string) (*models.ModelSession, error)
	Upsert(name, currentCode, snapshotsJSON string, cursor int, transcriptJSON string) (*models.ModelSession, error)
	DeleteByName(name string) error
	DeleteAll() error
}

type modelSessionRepository struct {
	db *gorm.DB
}

func NewModelSessionRepository(db *gorm.DB) ModelSessionRepository {
	return &modelSessionRepository{db: db}
}

func (r *modelSessionRepository) List() ([]models.ModelSession, error) {
	var sessions []models.ModelSession
	res := r.db.Order("updated_at desc").Find(&sessions)
	if res.Error != nil {
		return nil, res.Error
	}
	return sessions, nil
}

func (r *modelSessionRepository) GetByName(name string) (*models.ModelSession, error) {
	var sess models.ModelSession
	res := r.db.Where("name = ?", name).Take(&sess)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &sess, nil
}

func (r *modelSessionRepository) Upsert(name, currentCode, snapshotsJSON string, cursor int, transcriptJSON string) (*models.ModelSession, error) {
	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	sess := models.ModelSession{
		Name:           name,
		CurrentCode:    currentCode,
		SnapshotsJSON:  snapshotsJSON,
		Cursor:         cursor,
		TranscriptJSON: transcriptJSON,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_code", "snapshots_json", "cursor", "transcript_json", "updated_at"}),
	}).Create(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *modelSessionRepository) DeleteByName(name string) error {
	return r.db.Where("name = ?", name).Delete(&models.ModelSession{}).Error
}

func (r *modelSessionRepository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ModelSession{}).Error
}
