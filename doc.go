// Package gatekeeper implements whitelist-gated authentication for the
// image platform: credential login, magic-link login, JWT session issuance,
// and the role checks backing the user-administration surface.
//
// Whitelist:
//   - Every principal carries an is_whitelisted flag independent of its role.
//     A WhitelistProvider answers membership and role lookups; the store
//     backed variant reads the users table, the config backed variant parses
//     a static entry list. Email matching is case-insensitive everywhere.
//
// Roles:
//   - Roles form a total order (user < co-owner < admin). Management
//     operations require co-owner or better; see CanManageUsers.
//
// Magic links:
//   - MagicLink issues single-use tokens with a short expiry. Tokens live in
//     a TokenStore; the repository backed store consumes tokens atomically so
//     a link can be redeemed exactly once across all serving instances.
//
// Sessions:
//   - Sessions are signed JWTs embedding the role and whitelist flag at
//     issuance. Validation checks signature and TTL only; a principal
//     de-whitelisted mid-session keeps access until the token expires.
package gatekeeper
