package persona

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cortexa-labs/ragserve/types"
)

// MongoStore reads tenant identities straight from the identity collection,
// for deployments where the configuration service and this service share a
// database instead of an HTTP boundary.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates an identity store over the given collection.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

// ConnectMongoStore dials the database and returns a store over
// database/collection. The returned close function disconnects the client.
func ConnectMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, func(context.Context) error, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect identity database: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping identity database: %w", err)
	}
	store := NewMongoStore(client.Database(database).Collection(collection))
	return store, client.Disconnect, nil
}

// GetIdentity fetches and validates the tenant's identity document.
func (s *MongoStore) GetIdentity(ctx context.Context, tenantID string) (*Identity, error) {
	var identity Identity
	err := s.collection.FindOne(ctx, bson.M{"tenant_id": tenantID}).Decode(&identity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.NewError(types.ErrNotFound,
			fmt.Sprintf("tenant %q has no identity configuration", tenantID)).
			WithTenant(tenantID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "read identity document").
			WithCause(err).WithTenant(tenantID).WithRetryable(true)
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return &identity, nil
}

// UpsertIdentity validates and stores an identity document.
func (s *MongoStore) UpsertIdentity(ctx context.Context, identity *Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"tenant_id": identity.TenantID},
		identity,
		options.Replace().SetUpsert(true))
	if err != nil {
		return types.NewError(types.ErrInternalError, "store identity document").
			WithCause(err).WithTenant(identity.TenantID)
	}
	return nil
}
