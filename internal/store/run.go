package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avriza/simrunner/internal/store/model"
)

// Run interface for run archive database operations
type Run interface {
	Create(ctx context.Context, run model.Run) (*model.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Run, error)
	List(ctx context.Context, filter *RunQueryFilter) ([]model.Run, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, exitCode *int) (*model.Run, error)
	SetResult(ctx context.Context, id uuid.UUID, status string, artifacts []string, diagnostics, errMsg string) (*model.Run, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
	InitialMigration() error
}

type RunStore struct {
	db *gorm.DB
}

// Make sure we conform to Run interface
var _ Run = (*RunStore)(nil)

func NewRunStore(db *gorm.DB) Run {
	return &RunStore{db: db}
}

func (s *RunStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Run{})
}

func (s *RunStore) Create(ctx context.Context, run model.Run) (*model.Run, error) {
	result := s.getDB(ctx).Create(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating run: %w", result.Error)
	}
	return &run, nil
}

func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	var run model.Run
	result := s.getDB(ctx).First(&run, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying run: %w", result.Error)
	}
	return &run, nil
}

func (s *RunStore) List(ctx context.Context, filter *RunQueryFilter) ([]model.Run, error) {
	var runs []model.Run
	tx := s.getDB(ctx).Model(&model.Run{}).Order("submitted_at")
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if result := tx.Find(&runs); result.Error != nil {
		return nil, fmt.Errorf("listing runs: %w", result.Error)
	}
	return runs, nil
}

func (s *RunStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, exitCode *int) (*model.Run, error) {
	updates := map[string]any{"status": status}
	if exitCode != nil {
		updates["exit_code"] = *exitCode
	}
	if status == "completed" || status == "failed" {
		now := time.Now().UTC()
		updates["finished_at"] = &now
	}

	result := s.getDB(ctx).Model(&model.Run{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("updating run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.Get(ctx, id)
}

func (s *RunStore) SetResult(ctx context.Context, id uuid.UUID, status string, artifacts []string, diagnostics, errMsg string) (*model.Run, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	run.Status = status
	run.Artifacts = artifacts
	run.Diagnostics = diagnostics
	run.Error = errMsg
	run.Collected = true
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	if result := s.getDB(ctx).Save(run); result.Error != nil {
		return nil, fmt.Errorf("saving run result: %w", result.Error)
	}
	return run, nil
}

func (s *RunStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Run{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("deleting run: %w", result.Error)
	}
	return nil
}

func (s *RunStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows := []struct {
		Status string
		Count  int64
	}{}
	result := s.getDB(ctx).Model(&model.Run{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("counting runs: %w", result.Error)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *RunStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
