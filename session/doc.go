// Package session keeps per-conversation turn logs for the presentation
// layers. Logs live in memory and end with the session.
package session
