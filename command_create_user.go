package gatekeeper

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type CreateUserMessage struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	IsWhitelisted *bool  `json:"is_whitelisted"`
	UseHashid     bool
	OnResponse    func(resp *CreateUserResponse)
}

func (e CreateUserMessage) Type() string { return "user.create" }

type CreateUserResponse struct {
	User    *User
	Success bool
}

// CreateUserHandler provisions a new account through the admin surface.
// Admin-created accounts are whitelisted unless the message says otherwise.
type CreateUserHandler struct {
	repo RepositoryManager
}

func NewCreateUserHandler(repo RepositoryManager) *CreateUserHandler {
	return &CreateUserHandler{repo: repo}
}

func (h *CreateUserHandler) Execute(ctx context.Context, event CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, event CreateUserMessage) error {
	user := &User{}
	resp := &CreateUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role := RoleUser
	if event.Role != "" {
		parsed, ok := ParseRole(event.Role)
		if !ok {
			return goerrors.New("unknown role for user creation", goerrors.CategoryBadInput).
				WithMetadata(map[string]any{"role": event.Role})
		}
		role = parsed
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = NormalizeEmail(event.Email)
		user.Role = role
		user.IsWhitelisted = true
		if event.IsWhitelisted != nil {
			user.IsWhitelisted = *event.IsWhitelisted
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(user.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			if goerrors.Is(err, ErrDuplicateEmail) {
				return ErrDuplicateEmail
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	resp.User = user
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
