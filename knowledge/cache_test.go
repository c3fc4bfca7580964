package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/rag"
	"github.com/cortexa-labs/ragserve/types"
)

// countingStore wraps an ArtifactStore and counts index reads per tenant.
type countingStore struct {
	inner ArtifactStore
	loads atomic.Int64
}

func (c *countingStore) ReadIndex(ctx context.Context, tenantID string) ([]byte, error) {
	c.loads.Add(1)
	return c.inner.ReadIndex(ctx, tenantID)
}

func (c *countingStore) ReadDocuments(ctx context.Context, tenantID string) ([]byte, error) {
	return c.inner.ReadDocuments(ctx, tenantID)
}

func writeBundle(t *testing.T, w ArtifactWriter, tenantID string, passages, sources []string, vectors [][]float32) {
	t.Helper()
	index, err := rag.NewFlatIndex(len(vectors[0]))
	require.NoError(t, err)
	require.NoError(t, index.Add(vectors...))

	var buf bytes.Buffer
	_, err = index.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, w.WriteIndex(context.Background(), tenantID, buf.Bytes()))

	docs, err := json.Marshal(DocumentSet{Texts: passages, URLs: sources})
	require.NoError(t, err)
	require.NoError(t, w.WriteDocuments(context.Background(), tenantID, docs))
}

func TestStoreGetLoadsAndCaches(t *testing.T) {
	fs := NewFSStore(t.TempDir())
	writeBundle(t, fs, "acme",
		[]string{"first passage", "second passage"},
		[]string{"https://acme.example/a", "https://acme.example/b"},
		[][]float32{{1, 0}, {0, 1}})

	counting := &countingStore{inner: fs}
	store := NewStore(counting, zap.NewNop())

	bundle, err := store.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", bundle.TenantID)
	assert.Equal(t, 2, bundle.Index.Size())
	assert.Equal(t, []string{"first passage", "second passage"}, bundle.Passages)

	again, err := store.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Same(t, bundle, again)
	assert.Equal(t, int64(1), counting.loads.Load())
}

func TestStoreConcurrentGetLoadsOnce(t *testing.T) {
	fs := NewFSStore(t.TempDir())
	writeBundle(t, fs, "acme",
		[]string{"passage"},
		[]string{"https://acme.example"},
		[][]float32{{1, 2, 3}})

	counting := &countingStore{inner: fs}
	store := NewStore(counting, zap.NewNop())

	const workers = 32
	var wg sync.WaitGroup
	results := make([]*Bundle, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := store.Get(context.Background(), "acme")
			require.NoError(t, err)
			results[i] = b
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), counting.loads.Load())
	for _, b := range results {
		assert.Same(t, results[0], b)
	}
}

func TestStoreGetUnknownTenant(t *testing.T) {
	store := NewStore(NewFSStore(t.TempDir()), zap.NewNop())

	_, err := store.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestStoreGetCorruptIndex(t *testing.T) {
	fs := NewFSStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, fs.WriteIndex(ctx, "acme", []byte("not an index")))
	require.NoError(t, fs.WriteDocuments(ctx, "acme", []byte(`{"texts":[],"urls":[]}`)))

	store := NewStore(fs, zap.NewNop())
	_, err := store.Get(ctx, "acme")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidTenantData, types.GetErrorCode(err))
}

func TestStoreGetMisalignedArtifacts(t *testing.T) {
	fs := NewFSStore(t.TempDir())
	ctx := context.Background()

	index, err := rag.NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, index.Add([]float32{1, 0}, []float32{0, 1}))
	var buf bytes.Buffer
	_, err = index.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, fs.WriteIndex(ctx, "acme", buf.Bytes()))
	// One passage for two vectors.
	require.NoError(t, fs.WriteDocuments(ctx, "acme", []byte(`{"texts":["only"],"urls":["u"]}`)))

	store := NewStore(fs, zap.NewNop())
	_, err = store.Get(ctx, "acme")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidTenantData, types.GetErrorCode(err))
}

func TestStoreFailedLoadIsNotCached(t *testing.T) {
	fs := NewFSStore(t.TempDir())
	counting := &countingStore{inner: fs}
	store := NewStore(counting, zap.NewNop())
	ctx := context.Background()

	_, err := store.Get(ctx, "acme")
	require.Error(t, err)

	// Artifacts appear later; the next Get should retry the load.
	writeBundle(t, fs, "acme", []string{"p"}, []string{"u"}, [][]float32{{1}})
	bundle, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Index.Size())
}

func TestStoreEvict(t *testing.T) {
	fs := NewFSStore(t.TempDir())
	writeBundle(t, fs, "acme", []string{"p"}, []string{"u"}, [][]float32{{1}})

	counting := &countingStore{inner: fs}
	store := NewStore(counting, zap.NewNop())
	ctx := context.Background()

	_, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	store.Evict("acme")
	assert.Equal(t, 0, store.Len())

	_, err = store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counting.loads.Load())
}
