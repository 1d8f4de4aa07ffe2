package gatekeeper

import (
	"os"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Defaults applied by StaticConfig when a field is zero.
const (
	DefaultContextKey           = "user"
	DefaultTokenExpiration      = 24
	DefaultAuthScheme           = "Bearer"
	DefaultTokenLookup          = "header:Authorization,cookie:user"
	DefaultRejectedRouteKey     = "rejected_route"
	DefaultRejectedRouteDefault = "/"
)

// StaticConfig is a plain value implementation of Config.
type StaticConfig struct {
	SigningKey           string
	SigningMethod        string
	ContextKey           string
	TokenExpiration      int
	TokenLookup          string
	AuthScheme           string
	Issuer               string
	Audience             []string
	RejectedRouteKey     string
	RejectedRouteDefault string
	WhitelistBackend     string
	WhitelistEntries     string
	MagicTokenTTL        time.Duration
	MagicLinkBaseURL     string
}

var _ Config = &StaticConfig{}

func (c *StaticConfig) GetSigningKey() string { return c.SigningKey }

func (c *StaticConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c *StaticConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return DefaultContextKey
	}
	return c.ContextKey
}

func (c *StaticConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return DefaultTokenExpiration
	}
	return c.TokenExpiration
}

func (c *StaticConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return DefaultTokenLookup
	}
	return c.TokenLookup
}

func (c *StaticConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return DefaultAuthScheme
	}
	return c.AuthScheme
}

func (c *StaticConfig) GetIssuer() string { return c.Issuer }

func (c *StaticConfig) GetAudience() []string { return c.Audience }

func (c *StaticConfig) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return DefaultRejectedRouteKey
	}
	return c.RejectedRouteKey
}

func (c *StaticConfig) GetRejectedRouteDefault() string {
	if c.RejectedRouteDefault == "" {
		return DefaultRejectedRouteDefault
	}
	return c.RejectedRouteDefault
}

func (c *StaticConfig) GetWhitelistBackend() string { return c.WhitelistBackend }

func (c *StaticConfig) GetWhitelistEntries() string { return c.WhitelistEntries }

func (c *StaticConfig) GetMagicTokenTTL() time.Duration {
	if c.MagicTokenTTL <= 0 {
		return DefaultMagicTokenTTL
	}
	return c.MagicTokenTTL
}

func (c *StaticConfig) GetMagicLinkBaseURL() string { return c.MagicLinkBaseURL }

// Validate ensures the config can actually mint tokens.
func (c *StaticConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("config requires a signing key", goerrors.CategoryBadInput)
	}
	return nil
}

// ConfigFromEnv builds a StaticConfig from the process environment:
//
//	AUTH_SIGNING_KEY        signing secret, required
//	AUTH_TOKEN_EXPIRATION   session TTL in hours, default 24
//	AUTH_ISSUER             token issuer
//	AUTH_AUDIENCE           comma separated audience list
//	AUTH_WHITELIST_BACKEND  "store" or "config"
//	AUTH_WHITELIST          entry list for the config backend
//	AUTH_MAGIC_TTL          magic token TTL, Go duration format
//	AUTH_BASE_URL           base URL for magic link emails
func ConfigFromEnv() (*StaticConfig, error) {
	cfg := &StaticConfig{
		SigningKey:       os.Getenv("AUTH_SIGNING_KEY"),
		Issuer:           os.Getenv("AUTH_ISSUER"),
		WhitelistBackend: os.Getenv("AUTH_WHITELIST_BACKEND"),
		WhitelistEntries: os.Getenv("AUTH_WHITELIST"),
		MagicLinkBaseURL: os.Getenv("AUTH_BASE_URL"),
	}

	if raw := os.Getenv("AUTH_AUDIENCE"); raw != "" {
		for _, aud := range strings.Split(raw, ",") {
			if aud = strings.TrimSpace(aud); aud != "" {
				cfg.Audience = append(cfg.Audience, aud)
			}
		}
	}

	if raw := os.Getenv("AUTH_TOKEN_EXPIRATION"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "AUTH_TOKEN_EXPIRATION must be an integer hour count")
		}
		cfg.TokenExpiration = hours
	}

	if raw := os.Getenv("AUTH_MAGIC_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "AUTH_MAGIC_TTL must be a duration")
		}
		cfg.MagicTokenTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
