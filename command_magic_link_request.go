package gatekeeper

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type MagicLinkRequestMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *MagicLinkRequestResponse)
}

func (e MagicLinkRequestMessage) Type() string { return "auth.magic_link_request" }

type MagicLinkRequestResponse struct {
	Success bool
}

// MagicLinkRequestHandler issues a sign-in link for whitelisted emails. The
// response does not distinguish known from unknown emails.
type MagicLinkRequestHandler struct {
	magic *MagicLink
}

func NewMagicLinkRequestHandler(magic *MagicLink) *MagicLinkRequestHandler {
	return &MagicLinkRequestHandler{magic: magic}
}

func (h *MagicLinkRequestHandler) Execute(ctx context.Context, event MagicLinkRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during magic link request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *MagicLinkRequestHandler) execute(ctx context.Context, event MagicLinkRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.magic.Issue(ctx, event.Email); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue magic link")
	}

	if event.OnResponse != nil {
		event.OnResponse(&MagicLinkRequestResponse{Success: true})
	}

	return nil
}
