// Package chat composes retrieval, persona, and dispatch into the
// end-to-end answer operation.
package chat
