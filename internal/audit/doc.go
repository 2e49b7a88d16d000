// Package audit delivers security events (logins, refreshes, revocations)
// to a pluggable [Sink] through an asynchronous [Dispatcher].
//
// Which events are emitted is decided by the flows; this package only
// buffers and delivers them.
//
// # What this package must NOT do
//
//   - Filter events based on business logic.
//   - Import tokenkeeper or any sibling internal package.
//   - Record token strings or passwords.
package audit
