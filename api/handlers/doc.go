// Package handlers implements the HTTP endpoints of the chat service:
// POST /chat plus health, readiness, and version probes, with a uniform
// response envelope and error-code to status mapping.
package handlers
