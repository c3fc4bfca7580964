// Package metrics provides Prometheus instrumentation for the chat
// service: HTTP traffic, chat pipeline outcomes, knowledge cache
// effectiveness, and per-replica in-flight load.
package metrics
