package gatekeeper

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	MagicTokens() *MagicTokens
	Images() Images
	ProcessingJobs() ProcessingJobs
	WorkflowConfigs() WorkflowConfigs
}

type mngr struct {
	db              *bun.DB
	users           Users
	magicTokens     *MagicTokens
	images          Images
	processingJobs  ProcessingJobs
	workflowConfigs WorkflowConfigs
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:              db,
		users:           NewUsersRepository(db),
		magicTokens:     NewMagicTokensRepository(db),
		images:          NewImagesRepository(db),
		processingJobs:  NewProcessingJobsRepository(db),
		workflowConfigs: NewWorkflowConfigsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.magicTokens == nil {
		return errors.New("repository magicTokens should be initialized")
	}

	if m.images == nil {
		return errors.New("repository images should be initialized")
	}

	if m.processingJobs == nil {
		return errors.New("repository processingJobs should be initialized")
	}

	if m.workflowConfigs == nil {
		return errors.New("repository workflowConfigs should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) MagicTokens() *MagicTokens {
	return m.magicTokens
}

func (m mngr) Images() Images {
	return m.images
}

func (m mngr) ProcessingJobs() ProcessingJobs {
	return m.processingJobs
}

func (m mngr) WorkflowConfigs() WorkflowConfigs {
	return m.workflowConfigs
}
