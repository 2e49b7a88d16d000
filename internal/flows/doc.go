// Package flows holds one function per engine operation: RunRegister,
// RunLogin, RunRefresh, RunLogout, RunProfile and RunAuthenticate.
//
// A flow receives everything it touches as callbacks in its Deps struct
// and reports the outcome as a result with a failure kind. Translating
// kinds into public errors and log lines is the engine's job; flows keep
// no state between calls and never import the root package.
//
// Token strings and passwords are never passed to audit metadata or to
// the Warn hook.
package flows
