package guard

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, key []byte, claims *guardClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(key)
	require.NoError(t, err)
	return raw
}

func liveClaims(role string, whitelisted bool) *guardClaims {
	now := time.Now()
	return &guardClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UID:         "user-1",
		UserEmail:   "user@example.com",
		UserRole:    role,
		Whitelisted: whitelisted,
	}
}

func TestPerformAuthorizationChecks(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		claims  *guardClaims
		wantErr bool
	}{
		{
			name:   "no requirements",
			cfg:    Config{},
			claims: liveClaims("user", false),
		},
		{
			name:   "whitelist required and present",
			cfg:    Config{RequireWhitelist: true},
			claims: liveClaims("user", true),
		},
		{
			name:    "whitelist required and missing",
			cfg:     Config{RequireWhitelist: true},
			claims:  liveClaims("admin", false),
			wantErr: true,
		},
		{
			name:   "minimum role satisfied",
			cfg:    Config{MinimumRole: "co-owner"},
			claims: liveClaims("admin", true),
		},
		{
			name:    "minimum role not met",
			cfg:     Config{MinimumRole: "co-owner"},
			claims:  liveClaims("user", true),
			wantErr: true,
		},
		{
			name:   "exact role match",
			cfg:    Config{RequiredRole: "admin"},
			claims: liveClaims("admin", true),
		},
		{
			name:    "exact role mismatch even above it",
			cfg:     Config{RequiredRole: "co-owner"},
			claims:  liveClaims("admin", true),
			wantErr: true,
		},
		{
			name:    "whitelist checked before roles",
			cfg:     Config{RequireWhitelist: true, MinimumRole: "user"},
			claims:  liveClaims("admin", false),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := performAuthorizationChecks(tt.claims, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPerformAuthorizationChecksWhitelistError(t *testing.T) {
	err := performAuthorizationChecks(liveClaims("admin", false), Config{RequireWhitelist: true})
	assert.ErrorIs(t, err, ErrNotWhitelisted)
}

func TestPerformAuthorizationChecksRoleError(t *testing.T) {
	err := performAuthorizationChecks(liveClaims("user", true), Config{MinimumRole: "co-owner"})
	assert.ErrorIs(t, err, ErrInsufficientRole)

	err = performAuthorizationChecks(liveClaims("admin", true), Config{RequiredRole: "co-owner"})
	assert.ErrorIs(t, err, ErrInsufficientRole)

	err = performAuthorizationChecks(liveClaims("user", true), Config{
		MinimumRole: "user",
		RoleChecker: func(AuthClaims, string) bool { return false },
	})
	assert.ErrorIs(t, err, ErrInsufficientRole)
}

func TestGuardOptionalAuth(t *testing.T) {
	key := []byte("guard-test-key")

	newGuard := func(opts ...Option) router.MiddlewareFunc {
		return New(Config{
			SigningKey:  SigningKey{Key: key, JWTAlg: "HS256"},
			TokenLookup: "header:Authorization",
			ErrorHandler: func(c router.Context, err error) error {
				return err
			},
		}, opts...)
	}

	t.Run("missing token falls through to the handler", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("")

		called := false
		handler := newGuard(WithOptional())(func(router.Context) error {
			called = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, called)
	})

	t.Run("garbage token falls through without claims", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer not-a-token")

		called := false
		handler := newGuard(WithOptional())(func(router.Context) error {
			called = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, called)
	})

	t.Run("valid token still stores claims", func(t *testing.T) {
		raw := signedToken(t, key, liveClaims("user", true))

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer " + raw)
		ctx.On("Locals", "user", mock.Anything).Return(nil)

		called := false
		handler := newGuard(WithOptional())(func(router.Context) error {
			called = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, called)
		ctx.AssertExpectations(t)
	})

	t.Run("required guard still rejects a missing token", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("")

		handler := newGuard()(func(router.Context) error {
			t.Fatal("handler should not run")
			return nil
		})

		err := handler(ctx)
		assert.ErrorIs(t, err, ErrJWTMissingOrMalformed)
	})
}

func TestPerformAuthorizationChecksRoleChecker(t *testing.T) {
	calls := 0
	cfg := Config{
		MinimumRole: "user",
		RoleChecker: func(claims AuthClaims, role string) bool {
			calls++
			return claims.Email() == "user@example.com"
		},
	}

	assert.NoError(t, performAuthorizationChecks(liveClaims("user", true), cfg))
	assert.Equal(t, 1, calls)

	claims := liveClaims("user", true)
	claims.UserEmail = "other@example.com"
	assert.Error(t, performAuthorizationChecks(claims, cfg))
}

func TestGuardClaimsRoleLadder(t *testing.T) {
	admin := liveClaims("admin", true)
	coOwner := liveClaims("co-owner", true)
	user := liveClaims("user", true)

	assert.True(t, admin.IsAtLeast("co-owner"))
	assert.True(t, coOwner.IsAtLeast("user"))
	assert.False(t, user.IsAtLeast("co-owner"))

	assert.True(t, admin.CanManageUsers())
	assert.True(t, coOwner.CanManageUsers())
	assert.False(t, user.CanManageUsers())

	// unknown roles never rank
	odd := liveClaims("superuser", true)
	assert.False(t, odd.IsAtLeast("user"))
}

func TestGuardClaimsDefaults(t *testing.T) {
	claims := liveClaims("", true)

	assert.Equal(t, "user", claims.Role())
	assert.True(t, claims.HasRole("user"))

	claims.UID = ""
	assert.Equal(t, "user-1", claims.UserID())
}

func TestKeyFuncValidator(t *testing.T) {
	key := []byte("guard-test-key")
	validator := &keyFuncValidator{keyFunc: signingKeyFunc(SigningKey{Key: key, JWTAlg: "HS256"})}

	t.Run("valid token", func(t *testing.T) {
		raw := signedToken(t, key, liveClaims("co-owner", true))

		claims, err := validator.Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", claims.Email())
		assert.Equal(t, "co-owner", claims.Role())
		assert.True(t, claims.IsWhitelisted())
	})

	t.Run("wrong key", func(t *testing.T) {
		raw := signedToken(t, []byte("other-key"), liveClaims("user", true))

		_, err := validator.Validate(raw)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := liveClaims("user", true)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		raw := signedToken(t, key, claims)

		_, err := validator.Validate(raw)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := validator.Validate("not-a-token")
		assert.Error(t, err)
	})
}

func TestGetExtractors(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
		want   int
	}{
		{"header and cookie", "header:Authorization,cookie:user", 2},
		{"single query", "query:token", 1},
		{"all sources", "header:Authorization,cookie:user,query:token,param:token", 4},
		{"malformed chunks are skipped", "header,cookie:user", 1},
		{"empty lookup", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, GetExtractors(tt.lookup, "Bearer"), tt.want)
		})
	}
}
