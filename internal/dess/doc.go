// Package dess implements the DessMonitor cloud API client.
//
// The DessMonitor platform (api.dessmonitor.com) exposes a signed HTTP GET
// API. Every request carries a millisecond timestamp salt and an SHA-1
// signature over the salt, the caller's credentials and the action string.
// Before login the signature is keyed by the SHA-1 of the account password;
// after login it is keyed by the session secret and token returned by
// authSource.
//
// Responses share a JSON envelope {err, desc, dat}. A non-zero err is an
// API-level failure even when the HTTP status is 200.
//
// Sessions are valid for a server-provided window (typically seven days) and
// are persisted through a SessionStore so a daemon restart inside the window
// does not re-login. Session refresh is single-flight: concurrent callers
// that discover an expired session share one authSource request.
//
// # Error classification
//
// Failures split into two categories callers dispatch on with errors.Is:
//
//   - ErrAuth: the account credentials were rejected. Retrying without user
//     intervention is pointless.
//   - ErrTransient: timeouts, transport failures, 5xx responses and other
//     API-level errors. The next poll cycle should retry.
package dess
