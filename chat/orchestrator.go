package chat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/dispatch"
	"github.com/cortexa-labs/ragserve/embedding"
	"github.com/cortexa-labs/ragserve/knowledge"
	"github.com/cortexa-labs/ragserve/persona"
	"github.com/cortexa-labs/ragserve/prompt"
	"github.com/cortexa-labs/ragserve/rag"
	"github.com/cortexa-labs/ragserve/types"
)

// BundleGetter resolves a tenant's knowledge bundle.
type BundleGetter interface {
	Get(ctx context.Context, tenantID string) (*knowledge.Bundle, error)
}

// ReplicaLister discovers currently eligible replicas.
type ReplicaLister interface {
	ListReplicas(ctx context.Context) ([]string, error)
}

// Completer runs a completion on a named replica.
type Completer interface {
	Complete(ctx context.Context, modelID, prompt string) (string, error)
}

// InferenceMetrics records completion outcomes per replica.
type InferenceMetrics interface {
	RecordInference(replica, status string)
}

// Orchestrator runs the answer pipeline. It holds no per-request state;
// the knowledge cache and the dispatcher carry all shared state.
type Orchestrator struct {
	bundles    BundleGetter
	identities persona.Service
	embedder   embedding.Embedder
	retriever  *rag.Retriever
	replicas   ReplicaLister
	dispatcher *dispatch.Dispatcher
	completer  Completer
	builder    *prompt.Builder
	metrics    InferenceMetrics
	timeout    time.Duration
	logger     *zap.Logger
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Bundles    BundleGetter
	Identities persona.Service
	Embedder   embedding.Embedder
	Retriever  *rag.Retriever
	Replicas   ReplicaLister
	Dispatcher *dispatch.Dispatcher
	Completer  Completer
	Builder    *prompt.Builder
	// Metrics is optional; when set, every completion outcome is recorded.
	Metrics InferenceMetrics
	// Timeout bounds the single completion call, not the whole pipeline.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewOrchestrator creates the chat pipeline.
func NewOrchestrator(cfg Config) *Orchestrator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := cfg.Builder
	if builder == nil {
		builder = prompt.NewBuilder()
	}
	return &Orchestrator{
		bundles:    cfg.Bundles,
		identities: cfg.Identities,
		embedder:   cfg.Embedder,
		retriever:  cfg.Retriever,
		replicas:   cfg.Replicas,
		dispatcher: cfg.Dispatcher,
		completer:  cfg.Completer,
		builder:    builder,
		metrics:    cfg.Metrics,
		timeout:    timeout,
		logger:     logger.With(zap.String("component", "chat")),
	}
}

// Answer runs the full pipeline for one question. Any step failure ends the
// request with a typed error; there are no retries and no degraded answers.
func (o *Orchestrator) Answer(ctx context.Context, tenantID, question string) (string, error) {
	start := time.Now()

	bundle, err := o.bundles.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}

	identity, err := o.identities.GetIdentity(ctx, tenantID)
	if err != nil {
		return "", err
	}

	queryVector, err := o.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", err
	}

	matches, err := o.retriever.Retrieve(bundle.Index, bundle.Passages, bundle.Sources, queryVector)
	if err != nil {
		return "", err
	}

	promptText := o.builder.Build(identity, matches, question)

	candidates, err := o.replicas.ListReplicas(ctx)
	if err != nil {
		return "", err
	}

	replicaID, err := o.dispatcher.Acquire(candidates)
	if err != nil {
		return "", err
	}
	defer o.dispatcher.Release(replicaID)

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	answer, err := o.completer.Complete(callCtx, replicaID, promptText)
	if err != nil {
		o.recordInference(replicaID, "error")
		o.logger.Warn("completion failed",
			zap.String("tenant_id", tenantID),
			zap.String("replica_id", replicaID),
			zap.Error(err))
		return "", err
	}

	o.logger.Info("answered",
		zap.String("tenant_id", tenantID),
		zap.String("replica_id", replicaID),
		zap.Int("context_passages", len(matches)),
		zap.Duration("elapsed", time.Since(start)))

	answer = strings.TrimSpace(answer)
	if answer == "" {
		o.recordInference(replicaID, "empty")
		return "", types.NewError(types.ErrUpstreamInference, "replica returned an empty answer").
			WithTenant(tenantID)
	}
	o.recordInference(replicaID, "ok")
	return answer, nil
}

func (o *Orchestrator) recordInference(replicaID, status string) {
	if o.metrics != nil {
		o.metrics.RecordInference(replicaID, status)
	}
}
