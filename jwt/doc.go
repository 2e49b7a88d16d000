// Package jwt issues and verifies the compact signed tokens used by tokenkeeper.
//
// Two token classes exist, access and refresh, each signed with its own HS256
// secret. Every token carries the identity claim (id, email), a token class
// marker, a random token id (jti), issued-at and expiry.
//
// # Architecture boundaries
//
// This package is pure: it never touches the session store and never decides
// whether a verified refresh token is still the active one. That belongs to
// the session manager.
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Import tokenkeeper or session.
//   - Accept any algorithm other than the configured HMAC method.
package jwt
