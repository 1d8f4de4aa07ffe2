package gatekeeper

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the repository for the principal table.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	UpdateWhitelist(ctx context.Context, id uuid.UUID, whitelisted bool) (*User, error)
	UpdateWhitelistTx(ctx context.Context, tx bun.IDB, id uuid.UUID, whitelisted bool) (*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error)
	UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) (*User, error)

	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	List(ctx context.Context, opts ListOptions) ([]*User, int, error)
}

// ListOptions bounds a paginated listing.
type ListOptions struct {
	Limit  int
	Offset int
	// OrderBy is a column name from the users table; anything else falls
	// back to created_at
	OrderBy string
	Desc    bool
}

var listableUserColumns = map[string]bool{
	"email":          true,
	"user_role":      true,
	"is_whitelisted": true,
	"created_at":     true,
	"updated_at":     true,
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// GetByEmail looks the user up by the canonical lowercase email.
func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user, mapping a unique violation on email to
// ErrDuplicateEmail so callers can answer 409 without inspecting the driver.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	existing, err := a.GetByEmailTx(ctx, tx, user.Email)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	record, err := a.CreateTx(ctx, tx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) UpdateWhitelist(ctx context.Context, id uuid.UUID, whitelisted bool) (*User, error) {
	return a.UpdateWhitelistTx(ctx, a.db, id, whitelisted)
}

// UpdateWhitelistTx flips the is_whitelisted flag. Unknown ids surface as
// record-not-found, which the admin surface maps to 404.
func (a *users) UpdateWhitelistTx(ctx context.Context, tx bun.IDB, id uuid.UUID, whitelisted bool) (*User, error) {
	user, err := a.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, err
	}

	user.IsWhitelisted = whitelisted

	return a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(id.String()))
}

func (a *users) UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	return a.UpdateRoleTx(ctx, a.db, id, role)
}

func (a *users) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) (*User, error) {
	user, err := a.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, err
	}

	user.Role = role

	return a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(id.String()))
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return a.DeleteByIDTx(ctx, a.db, id)
}

// DeleteByIDTx soft deletes the user; the row keeps its email, so recreating
// the same address later conflicts until the row is purged.
func (a *users) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// List returns a page of users plus the total count.
func (a *users) List(ctx context.Context, opts ListOptions) ([]*User, int, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	column := opts.OrderBy
	if !listableUserColumns[column] {
		column = "created_at"
	}

	order := column + " ASC"
	if opts.Desc {
		order = column + " DESC"
	}

	var records []*User
	total, err := a.db.NewSelect().
		Model(&records).
		Order(order).
		Limit(opts.Limit).
		Offset(opts.Offset).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique violation")
}
