package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cortexa-labs/ragserve/rag"
	"github.com/cortexa-labs/ragserve/types"
)

// Hooks receives cache events, typically bound to metrics counters.
type Hooks struct {
	OnHit  func(tenantID string)
	OnMiss func(tenantID string)
}

// Store caches tenant knowledge bundles in memory, loading each tenant from
// the artifact store at most once. Concurrent first requests for the same
// tenant share a single load.
type Store struct {
	artifacts ArtifactStore
	logger    *zap.Logger
	hooks     Hooks

	mu      sync.RWMutex
	bundles map[string]*Bundle
	group   singleflight.Group
}

// NewStore creates a bundle cache on top of the given artifact store.
func NewStore(artifacts ArtifactStore, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		artifacts: artifacts,
		logger:    logger.With(zap.String("component", "knowledge")),
		bundles:   make(map[string]*Bundle),
	}
}

// SetHooks installs cache event callbacks. Not safe to call after Get.
func (s *Store) SetHooks(h Hooks) {
	s.hooks = h
}

// Get returns the bundle for the tenant, loading and parsing the stored
// artifacts on first use. The returned bundle is shared and must be treated
// as read-only.
func (s *Store) Get(ctx context.Context, tenantID string) (*Bundle, error) {
	s.mu.RLock()
	bundle, ok := s.bundles[tenantID]
	s.mu.RUnlock()
	if ok {
		if s.hooks.OnHit != nil {
			s.hooks.OnHit(tenantID)
		}
		return bundle, nil
	}

	if s.hooks.OnMiss != nil {
		s.hooks.OnMiss(tenantID)
	}
	v, err, _ := s.group.Do(tenantID, func() (interface{}, error) {
		s.mu.RLock()
		cached, ok := s.bundles[tenantID]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		loaded, err := s.load(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.bundles[tenantID] = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Evict drops a tenant's cached bundle so the next Get reloads it.
func (s *Store) Evict(tenantID string) {
	s.mu.Lock()
	delete(s.bundles, tenantID)
	s.mu.Unlock()
}

// Len reports how many tenants are currently cached.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bundles)
}

func (s *Store) load(ctx context.Context, tenantID string) (*Bundle, error) {
	indexData, err := s.artifacts.ReadIndex(ctx, tenantID)
	if err != nil {
		return nil, s.loadError(tenantID, "index", err)
	}
	docsData, err := s.artifacts.ReadDocuments(ctx, tenantID)
	if err != nil {
		return nil, s.loadError(tenantID, "documents", err)
	}

	index, err := rag.ReadFlatIndex(bytes.NewReader(indexData))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidTenantData,
			fmt.Sprintf("tenant %q: corrupt index artifact", tenantID)).
			WithCause(err).WithTenant(tenantID)
	}

	var docs DocumentSet
	if err := json.Unmarshal(docsData, &docs); err != nil {
		return nil, types.NewError(types.ErrInvalidTenantData,
			fmt.Sprintf("tenant %q: corrupt documents artifact", tenantID)).
			WithCause(err).WithTenant(tenantID)
	}
	if len(docs.Texts) != len(docs.URLs) || len(docs.Texts) != index.Size() {
		return nil, types.NewError(types.ErrInvalidTenantData,
			fmt.Sprintf("tenant %q: artifact mismatch: %d vectors, %d passages, %d sources",
				tenantID, index.Size(), len(docs.Texts), len(docs.URLs))).
			WithTenant(tenantID)
	}

	s.logger.Info("knowledge bundle loaded",
		zap.String("tenant_id", tenantID),
		zap.Int("passages", len(docs.Texts)),
		zap.Int("dim", index.Dim()))

	return &Bundle{
		TenantID: tenantID,
		Index:    index,
		Passages: docs.Texts,
		Sources:  docs.URLs,
	}, nil
}

func (s *Store) loadError(tenantID, artifact string, err error) error {
	if errors.Is(err, ErrArtifactMissing) {
		return types.NewError(types.ErrNotFound,
			fmt.Sprintf("no knowledge base for tenant %q", tenantID)).
			WithCause(err).WithTenant(tenantID)
	}
	return types.NewError(types.ErrInternalError,
		fmt.Sprintf("read %s artifact for tenant %q", artifact, tenantID)).
		WithCause(err).WithTenant(tenantID)
}
