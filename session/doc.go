// Package session owns refresh-session state and access-token revocation.
//
// # Storage model
//
// Everything lives in an expiring key-value [Store]:
//
//	session:{userID}             -> the single currently valid refresh token
//	blacklist:{sha256hex(token)} -> revocation marker, TTL = remaining token lifetime
//
// [RedisStore] is the production backend; [MemoryStore] is an in-process fake
// with a manual clock for tests and demos.
//
// # Architecture boundaries
//
// [Manager] is the session state machine (start, rotate, revoke, blacklist).
// It depends only on the [Store] capability interface and a jwt.Issuer. It does
// NOT look up users, hash passwords, or map errors to transport codes.
//
// # What this package must NOT do
//
//   - Import tokenkeeper or any transport package.
//   - Treat a store outage as "token absent" on any path that could grant access.
//   - Keep per-user state in process memory outside MemoryStore.
package session
