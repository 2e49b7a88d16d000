// Package tokenkeeper issues and revokes JWT access and refresh tokens backed by
// a Redis session store.
//
// Each user holds at most one active refresh token. Refresh rotates it with an
// atomic compare-and-swap, so a replayed or concurrently presented token loses
// and is reported as reuse. Logout deletes the session and blacklists the
// access token for its remaining lifetime.
//
// Engine methods are safe for concurrent use once built through [Builder.Build].
//
// # Failure policy
//
//   - The access-token blacklist check fails closed: an unreachable store
//     rejects the request with [ErrServiceUnavailable].
//   - The login and refresh rate limits fail open and log the outage.
//   - A blacklist write failure during logout is logged and swallowed because
//     the session is already gone.
//
// # Boundaries
//
// The root package exposes [Engine], [Builder], [Config] and value types. Flow
// orchestration, rate limiting and audit dispatch live under internal/. User
// persistence is pluggable through [UserStore]; the userstore package ships a
// Postgres and an in-memory implementation.
package tokenkeeper
