package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TenantArtifact is the relational form of a tenant's artifact pair, for
// deployments that keep knowledge bundles in a database instead of a shared
// volume.
type TenantArtifact struct {
	TenantID  string `gorm:"primaryKey;size:128"`
	IndexData []byte `gorm:"type:bytea"`
	DocsData  []byte `gorm:"type:bytea"`
	UpdatedAt time.Time
}

// TableName fixes the table name regardless of gorm's pluralization.
func (TenantArtifact) TableName() string { return "tenant_artifacts" }

// DBStore reads and writes tenant artifacts through gorm.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore creates a database artifact store and ensures the table exists.
func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&TenantArtifact{}); err != nil {
		return nil, fmt.Errorf("migrate tenant_artifacts: %w", err)
	}
	return &DBStore{db: db}, nil
}

// ReadIndex returns the serialized index for the tenant.
func (s *DBStore) ReadIndex(ctx context.Context, tenantID string) ([]byte, error) {
	rec, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(rec.IndexData) == 0 {
		return nil, fmt.Errorf("%w: tenant %q has no index", ErrArtifactMissing, tenantID)
	}
	return rec.IndexData, nil
}

// ReadDocuments returns the serialized passages/sources artifact.
func (s *DBStore) ReadDocuments(ctx context.Context, tenantID string) ([]byte, error) {
	rec, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(rec.DocsData) == 0 {
		return nil, fmt.Errorf("%w: tenant %q has no documents", ErrArtifactMissing, tenantID)
	}
	return rec.DocsData, nil
}

// WriteIndex upserts the serialized index for the tenant.
func (s *DBStore) WriteIndex(ctx context.Context, tenantID string, data []byte) error {
	return s.upsert(ctx, tenantID, func(rec *TenantArtifact) { rec.IndexData = data })
}

// WriteDocuments upserts the serialized passages/sources artifact.
func (s *DBStore) WriteDocuments(ctx context.Context, tenantID string, data []byte) error {
	return s.upsert(ctx, tenantID, func(rec *TenantArtifact) { rec.DocsData = data })
}

func (s *DBStore) load(ctx context.Context, tenantID string) (*TenantArtifact, error) {
	var rec TenantArtifact
	err := s.db.WithContext(ctx).First(&rec, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: tenant %q has no artifacts", ErrArtifactMissing, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifacts for tenant %q: %w", tenantID, err)
	}
	return &rec, nil
}

func (s *DBStore) upsert(ctx context.Context, tenantID string, apply func(*TenantArtifact)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec TenantArtifact
		err := tx.First(&rec, "tenant_id = ?", tenantID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec = TenantArtifact{TenantID: tenantID}
		} else if err != nil {
			return err
		}
		apply(&rec)
		return tx.Save(&rec).Error
	})
}
