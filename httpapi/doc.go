// Package httpapi is the REST transport for [tokenkeeper.Engine].
//
// Routes:
//
//	POST /auth/register  201 {accessToken, refreshToken, user}
//	POST /auth/login     200 {accessToken, refreshToken, user}
//	POST /auth/refresh   200 {accessToken, refreshToken, user}
//	POST /auth/logout    200 {message}            (Bearer)
//	GET  /auth/profile   200 profile              (Bearer)
//	GET  /health         200/503 {status, timestamp, services}
//	GET  /metrics        Prometheus exposition, when configured
//
// Failures are written as {"error": {"code", "message"}} using the stable
// codes from [tokenkeeper.ErrorCode].
package httpapi
