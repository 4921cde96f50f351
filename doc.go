// Package auth implements the client-side authentication core for the
// school-health portal: session lifecycle with activity-driven refresh,
// phone-based OTP login with a primary/fallback provider cascade, and the
// single-instance anti-automation challenge widget the primary provider
// requires.
//
// Session lifecycle:
//   - SessionManager owns the authoritative session record and the expiry
//     timers. Login and Refresh stamp a fresh 30 minute TTL; a warning hook
//     fires once per session when five minutes remain; expiry logs the
//     session out automatically. Resume restores a persisted session with
//     only its remaining time, so restarts never grant extra TTL.
//   - ActivityMonitor feeds throttled interaction signals into Refresh so
//     active sessions extend indefinitely while idle ones expire.
//
// OTP verification:
//   - OTPFlow is the state machine behind phone login. RequestCode tries the
//     primary provider first (acquiring a challenge widget), falls back to
//     the backend-issued OTP path, and tracks the live challenge with a two
//     minute countdown. SubmitCode routes verification to whichever provider
//     issued the live challenge and maps every outcome onto the error
//     taxonomy in errors.go. Only PARENT principals may complete the flow.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the session
//     manager and the OTP flow to describe login, refresh, expiry, and
//     challenge events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package auth
