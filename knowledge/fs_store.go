package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact file names under <root>/<tenant>/.
const (
	indexFileName = "index.bin"
	docsFileName  = "docs.json"
)

// FSStore reads and writes tenant artifacts on the local filesystem, one
// directory per tenant.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem artifact store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// ReadIndex returns the serialized index for the tenant.
func (s *FSStore) ReadIndex(ctx context.Context, tenantID string) ([]byte, error) {
	return s.read(tenantID, indexFileName)
}

// ReadDocuments returns the serialized passages/sources artifact.
func (s *FSStore) ReadDocuments(ctx context.Context, tenantID string) ([]byte, error) {
	return s.read(tenantID, docsFileName)
}

// WriteIndex persists the serialized index for the tenant.
func (s *FSStore) WriteIndex(ctx context.Context, tenantID string, data []byte) error {
	return s.write(tenantID, indexFileName, data)
}

// WriteDocuments persists the serialized passages/sources artifact.
func (s *FSStore) WriteDocuments(ctx context.Context, tenantID string, data []byte) error {
	return s.write(tenantID, docsFileName, data)
}

func (s *FSStore) read(tenantID, name string) ([]byte, error) {
	path, err := s.artifactPath(tenantID, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: tenant %q has no %s", ErrArtifactMissing, tenantID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s for tenant %q: %w", name, tenantID, err)
	}
	return data, nil
}

func (s *FSStore) write(tenantID, name string, data []byte) error {
	path, err := s.artifactPath(tenantID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tenant directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s for tenant %q: %w", name, tenantID, err)
	}
	return nil
}

// artifactPath rejects tenant ids that would escape the store root.
func (s *FSStore) artifactPath(tenantID, name string) (string, error) {
	if tenantID == "" || strings.ContainsAny(tenantID, `/\`) || tenantID == "." || tenantID == ".." {
		return "", fmt.Errorf("invalid tenant id %q", tenantID)
	}
	return filepath.Join(s.root, tenantID, name), nil
}
