// Package userstore provides tokenkeeper.UserStore implementations: a
// PostgreSQL store using the pgx database/sql driver with goose migrations,
// and an in-memory store for tests and demos.
//
// Emails are stored lower-cased; usernames are unique case-insensitively.
// Both stores return ErrNotFound and ErrConflict, which are the sentinels
// tokenkeeper expects from any UserStore.
package userstore
