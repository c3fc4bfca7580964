// Package knowledge owns per-tenant knowledge bundles: the durable artifact
// stores they are read from, the alignment validation applied at load time,
// and the in-process cache that makes every bundle a load-once, read-many
// value for the life of the process.
package knowledge
