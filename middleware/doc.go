// Package middleware adapts [tokenkeeper.Engine] to net/http.
//
// [Guard] reads the bearer token from the Authorization header, calls
// Engine.Authenticate and stores the admitted identity on the request
// context, where handlers read it with [tokenkeeper.AuthResultFromContext].
// A token that fails verification, is blacklisted, or whose blacklist
// status cannot be read is rejected with 401.
//
// [ClientIP] records the caller address for per-IP login throttling and
// audit events.
//
// This package makes no authentication decisions of its own.
package middleware
