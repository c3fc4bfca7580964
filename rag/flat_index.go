package rag

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	Index    int     // position of the vector in insertion order
	Distance float32 // squared L2 distance to the query
}

// FlatIndex is an exact-search vector index: every query is compared against
// every stored vector (squared L2). No approximate structure; correctness
// over scale. Built offline, searched read-only at runtime; concurrent
// Search calls on a built index are safe.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("flat index: dimension must be positive, got %d", dim)
	}
	return &FlatIndex{dim: dim}, nil
}

// Add appends vectors to the index in order.
func (ix *FlatIndex) Add(vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("flat index: vector dimension %d does not match index dimension %d", len(v), ix.dim)
		}
		ix.vectors = append(ix.vectors, v)
	}
	return nil
}

// Size returns the number of stored vectors.
func (ix *FlatIndex) Size() int { return len(ix.vectors) }

// Dim returns the vector dimension.
func (ix *FlatIndex) Dim() int { return ix.dim }

// Search returns the k nearest stored vectors to query, ordered by ascending
// distance. Ties are broken by insertion order. If the index holds fewer than
// k vectors, all of them are returned.
func (ix *FlatIndex) Search(query []float32, k int) ([]SearchResult, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("flat index: query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	if k <= 0 || len(ix.vectors) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, len(ix.vectors))
	for i, v := range ix.vectors {
		results[i] = SearchResult{Index: i, Distance: squaredL2(query, v)}
	}

	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ====== binary codec ======

// The durable form of a flat index is a self-describing little-endian blob:
// 4-byte magic, uint32 dimension, uint32 count, then count*dimension float32
// values in insertion order.

var indexMagic = [4]byte{'R', 'S', 'I', 'X'}

// WriteTo serializes the index. Implements io.WriterTo.
func (ix *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Write(indexMagic[:])

	if err := binary.Write(&buf, binary.LittleEndian, uint32(ix.dim)); err != nil {
		return 0, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(ix.vectors))); err != nil {
		return 0, err
	}
	for _, v := range ix.vectors {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return 0, err
		}
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFlatIndex deserializes an index previously written with WriteTo.
func ReadFlatIndex(r io.Reader) (*FlatIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("flat index: read header: %w", err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("flat index: bad magic %q", magic[:])
	}

	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("flat index: read dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("flat index: read count: %w", err)
	}
	if dim == 0 {
		return nil, fmt.Errorf("flat index: zero dimension")
	}

	ix := &FlatIndex{dim: int(dim), vectors: make([][]float32, 0, count)}
	for i := uint32(0); i < count; i++ {
		v := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, fmt.Errorf("flat index: read vector %d: %w", i, err)
		}
		ix.vectors = append(ix.vectors, v)
	}
	return ix, nil
}
