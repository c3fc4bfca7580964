package knowledge

import (
	"context"
	"errors"

	"github.com/cortexa-labs/ragserve/rag"
)

// Bundle is one tenant's knowledge base: an exact-search index over passages
// plus the index-aligned provenance slices. Bundles are immutable once
// loaded; re-ingestion replaces the durable artifacts wholesale, never the
// in-memory value.
type Bundle struct {
	TenantID string
	Index    *rag.FlatIndex
	Passages []string
	Sources  []string
}

// DocumentSet is the durable passages/sources artifact. The two slices are
// index-aligned with the vector index built over them.
type DocumentSet struct {
	Texts []string `json:"texts"`
	URLs  []string `json:"urls"`
}

// Sentinel errors reported by artifact stores. The cache maps them onto the
// service error taxonomy.
var (
	ErrArtifactMissing = errors.New("knowledge artifact missing")
)

// ArtifactStore reads a tenant's durable artifacts. Absence of either
// artifact is reported as ErrArtifactMissing; stores do not interpret the
// bytes they return.
type ArtifactStore interface {
	// ReadIndex returns the serialized vector index for the tenant.
	ReadIndex(ctx context.Context, tenantID string) ([]byte, error)

	// ReadDocuments returns the serialized passages/sources artifact.
	ReadDocuments(ctx context.Context, tenantID string) ([]byte, error)
}

// ArtifactWriter persists a tenant's artifacts. Only the offline ingestion
// path writes; the chat runtime never does.
type ArtifactWriter interface {
	WriteIndex(ctx context.Context, tenantID string, data []byte) error
	WriteDocuments(ctx context.Context, tenantID string, data []byte) error
}
