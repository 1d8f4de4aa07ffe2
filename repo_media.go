package gatekeeper

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Images is the repository for uploaded images.
type Images interface {
	repository.Repository[*Image]

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Image, error)
}

type images struct {
	repository.Repository[*Image]
	db *bun.DB
}

var _ Images = (*images)(nil)

func NewImagesRepository(db *bun.DB) Images {
	repo := repository.NewRepository[*Image](db, repository.ModelHandlers[*Image]{
		NewRecord: func() *Image { return &Image{} },
		GetID: func(i *Image) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Image, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
	})

	return &images{Repository: repo, db: db}
}

func (r *images) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Image, error) {
	var records []*Image

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// ProcessingJobs is the repository for transformation jobs.
type ProcessingJobs interface {
	repository.Repository[*ProcessingJob]

	ListByStatus(ctx context.Context, status JobStatus) ([]*ProcessingJob, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, resultImageID uuid.UUID) (*ProcessingJob, error)
	MarkFailed(ctx context.Context, id uuid.UUID, message string) (*ProcessingJob, error)
}

type processingJobs struct {
	repository.Repository[*ProcessingJob]
	db *bun.DB
}

var _ ProcessingJobs = (*processingJobs)(nil)

func NewProcessingJobsRepository(db *bun.DB) ProcessingJobs {
	repo := repository.NewRepository[*ProcessingJob](db, repository.ModelHandlers[*ProcessingJob]{
		NewRecord: func() *ProcessingJob { return &ProcessingJob{} },
		GetID: func(j *ProcessingJob) uuid.UUID {
			if j == nil {
				return uuid.Nil
			}
			return j.ID
		},
		SetID: func(j *ProcessingJob, id uuid.UUID) {
			if j != nil {
				j.ID = id
			}
		},
	})

	return &processingJobs{Repository: repo, db: db}
}

func (r *processingJobs) ListByStatus(ctx context.Context, status JobStatus) ([]*ProcessingJob, error) {
	var records []*ProcessingJob

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", status).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *processingJobs) MarkCompleted(ctx context.Context, id uuid.UUID, resultImageID uuid.UUID) (*ProcessingJob, error) {
	now := time.Now()
	record := &ProcessingJob{
		ID:            id,
		Status:        JobCompleted,
		ResultImageID: &resultImageID,
		CompletedAt:   &now,
	}

	return r.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

func (r *processingJobs) MarkFailed(ctx context.Context, id uuid.UUID, message string) (*ProcessingJob, error) {
	now := time.Now()
	record := &ProcessingJob{
		ID:           id,
		Status:       JobFailed,
		ErrorMessage: message,
		CompletedAt:  &now,
	}

	return r.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

// WorkflowConfigs is the repository for named transformation pipelines.
type WorkflowConfigs interface {
	repository.Repository[*WorkflowConfig]

	GetByName(ctx context.Context, name string) (*WorkflowConfig, error)
	ListActive(ctx context.Context) ([]*WorkflowConfig, error)
}

type workflowConfigs struct {
	repository.Repository[*WorkflowConfig]
	db *bun.DB
}

var _ WorkflowConfigs = (*workflowConfigs)(nil)

func NewWorkflowConfigsRepository(db *bun.DB) WorkflowConfigs {
	repo := repository.NewRepository[*WorkflowConfig](db, repository.ModelHandlers[*WorkflowConfig]{
		NewRecord: func() *WorkflowConfig { return &WorkflowConfig{} },
		GetID: func(w *WorkflowConfig) uuid.UUID {
			if w == nil {
				return uuid.Nil
			}
			return w.ID
		},
		SetID: func(w *WorkflowConfig, id uuid.UUID) {
			if w != nil {
				w.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &workflowConfigs{Repository: repo, db: db}
}

func (r *workflowConfigs) GetByName(ctx context.Context, name string) (*WorkflowConfig, error) {
	record := &WorkflowConfig{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"name": name})
		}
		return nil, err
	}

	return record, nil
}

func (r *workflowConfigs) ListActive(ctx context.Context) ([]*WorkflowConfig, error) {
	var records []*WorkflowConfig

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_active = ?", true).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}
