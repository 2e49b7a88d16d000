// Package password hashes and verifies user passwords.
//
// [Argon2] encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] produces and checks standard $2a$/$2b$ hashes. [Multi] picks the
// verifier from the stored hash format, so a table written by a bcrypt-based
// service keeps working after the primary algorithm changes; NeedsUpgrade
// then reports true for every non-primary hash. Hashes in no known format
// fail with [ErrMalformedHash].
//
// Nothing here stores passwords, logs them or imports other tokenkeeper
// packages.
package password
