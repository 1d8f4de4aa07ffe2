package gatekeeper

import (
	goerrors "github.com/goliatone/go-errors"
)

// Whitelist backend identifiers used by Config.GetWhitelistBackend.
const (
	// WhitelistBackendStore reads the users table
	WhitelistBackendStore = "store"
	// WhitelistBackendConfig parses a static entry list
	WhitelistBackendConfig = "config"
)

// NewWhitelistProvider selects the whitelist variant from configuration. The
// store backed provider needs a Users repository; the config backed provider
// parses Config.GetWhitelistEntries.
func NewWhitelistProvider(cfg Config, users Users) (WhitelistProvider, error) {
	switch cfg.GetWhitelistBackend() {
	case WhitelistBackendConfig:
		provider, err := NewConfigWhitelist(cfg.GetWhitelistEntries())
		if err != nil {
			return nil, err
		}
		return provider, nil
	case WhitelistBackendStore, "":
		if users == nil {
			return nil, goerrors.New("store whitelist requires a users repository", goerrors.CategoryBadInput)
		}
		return NewStoreWhitelist(users), nil
	default:
		return nil, goerrors.New("unknown whitelist backend", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"backend": cfg.GetWhitelistBackend()})
	}
}
