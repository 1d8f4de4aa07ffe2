package gatekeeper

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type MagicLinkVerifyMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *MagicLinkVerifyResponse)
}

func (e MagicLinkVerifyMessage) Type() string { return "auth.magic_link_verify" }

type MagicLinkVerifyResponse struct {
	SessionToken string
	Success      bool
}

// MagicLinkVerifyHandler redeems a magic token for a session token.
type MagicLinkVerifyHandler struct {
	auth Authenticator
}

func NewMagicLinkVerifyHandler(auth Authenticator) *MagicLinkVerifyHandler {
	return &MagicLinkVerifyHandler{auth: auth}
}

func (h *MagicLinkVerifyHandler) Execute(ctx context.Context, event MagicLinkVerifyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during magic link verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *MagicLinkVerifyHandler) execute(ctx context.Context, event MagicLinkVerifyMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	token, err := h.auth.LoginWithMagicToken(ctx, event.Token)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify magic link")
	}

	if event.OnResponse != nil {
		event.OnResponse(&MagicLinkVerifyResponse{
			SessionToken: token,
			Success:      true,
		})
	}

	return nil
}
