// Package types holds the shared error taxonomy used across the chat
// pipeline. Every failure surfaced by the orchestrator is a *types.Error
// carrying one of the codes defined here; handlers map codes to HTTP status.
package types
