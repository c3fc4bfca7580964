package inference

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/types"
)

// DefaultModelPrefix selects chat replicas among the models a shared
// gateway hosts.
const DefaultModelPrefix = "phi-3.1-mini"

// Registry discovers eligible chat replicas behind the gateway. The replica
// set is queried fresh on every call; there is no stale fallback.
type Registry struct {
	gateway Gateway
	prefix  string
	logger  *zap.Logger
}

// NewRegistry creates a registry that keeps replicas whose model id starts
// with prefix.
func NewRegistry(gateway Gateway, prefix string, logger *zap.Logger) *Registry {
	if prefix == "" {
		prefix = DefaultModelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		gateway: gateway,
		prefix:  prefix,
		logger:  logger.With(zap.String("component", "registry")),
	}
}

// ListReplicas returns the ids of currently available chat replicas.
// A listing failure or an empty match both report NO_REPLICAS_AVAILABLE.
func (r *Registry) ListReplicas(ctx context.Context) ([]string, error) {
	ids, err := r.gateway.ListModels(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrNoReplicasAvailable, "replica discovery failed").
			WithCause(err).WithRetryable(true)
	}

	replicas := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, r.prefix) {
			replicas = append(replicas, id)
		}
	}
	if len(replicas) == 0 {
		r.logger.Warn("no matching replicas",
			zap.String("prefix", r.prefix),
			zap.Int("models_listed", len(ids)))
		return nil, types.NewError(types.ErrNoReplicasAvailable,
			fmt.Sprintf("gateway hosts no replicas matching %q", r.prefix)).
			WithRetryable(true)
	}
	return replicas, nil
}
