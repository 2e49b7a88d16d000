// Package rate implements Redis fixed-window counters for login and refresh
// throttling.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit. Keys live under the rl: namespace so they
// never collide with session: or blacklist: keys:
//   - rl:login:{identifier}  failed logins per identifier
//   - rl:login-ip:{ip}       failed logins per client IP
//   - rl:refresh:{userID}    refresh attempts per user
//
// Whether an outage fails open or closed is decided by the caller; this
// package only reports ErrRedisUnavailable.
package rate
