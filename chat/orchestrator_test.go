package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/dispatch"
	"github.com/cortexa-labs/ragserve/knowledge"
	"github.com/cortexa-labs/ragserve/persona"
	"github.com/cortexa-labs/ragserve/rag"
	"github.com/cortexa-labs/ragserve/types"
)

type fakeBundles struct {
	bundle *knowledge.Bundle
	err    error
}

func (f *fakeBundles) Get(ctx context.Context, tenantID string) (*knowledge.Bundle, error) {
	return f.bundle, f.err
}

type fakeIdentities struct {
	identity *persona.Identity
	err      error
}

func (f *fakeIdentities) GetIdentity(ctx context.Context, tenantID string) (*persona.Identity, error) {
	return f.identity, f.err
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

type fakeReplicas struct {
	ids []string
	err error
}

func (f *fakeReplicas) ListReplicas(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

type fakeCompleter struct {
	answer     string
	err        error
	gotModel   string
	gotPrompt  string
	midFlight  func()
	callsCount int
}

func (f *fakeCompleter) Complete(ctx context.Context, modelID, prompt string) (string, error) {
	f.callsCount++
	f.gotModel = modelID
	f.gotPrompt = prompt
	if f.midFlight != nil {
		f.midFlight()
	}
	return f.answer, f.err
}

func acmeBundle(t *testing.T) *knowledge.Bundle {
	t.Helper()
	index, err := rag.NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, index.Add([]float32{1, 0}, []float32{0, 1}))
	return &knowledge.Bundle{
		TenantID: "acme",
		Index:    index,
		Passages: []string{"Tuition is $10,000/year.", "Campus has two dorms."},
		Sources:  []string{"https://acme.edu/tuition", "https://acme.edu/housing"},
	}
}

func acmeIdentity() *persona.Identity {
	return &persona.Identity{
		TenantID:       "acme",
		DisplayName:    "Acme University",
		Friendliness:   50,
		Formality:      50,
		Verbosity:      50,
		Humor:          50,
		TechnicalLevel: 50,
	}
}

type fakeInferenceMetrics struct {
	replicas []string
	statuses []string
}

func (f *fakeInferenceMetrics) RecordInference(replica, status string) {
	f.replicas = append(f.replicas, replica)
	f.statuses = append(f.statuses, status)
}

type fixture struct {
	orchestrator *Orchestrator
	dispatcher   *dispatch.Dispatcher
	completer    *fakeCompleter
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	completer := &fakeCompleter{answer: "  Tuition is $10,000 per year.  "}
	dispatcher := dispatch.NewDispatcher()
	cfg := Config{
		Bundles:    &fakeBundles{bundle: acmeBundle(t)},
		Identities: &fakeIdentities{identity: acmeIdentity()},
		Embedder:   &fakeEmbedder{vector: []float32{0.9, 0.1}},
		Retriever:  rag.NewRetriever(rag.DefaultTopK, zap.NewNop()),
		Replicas:   &fakeReplicas{ids: []string{"phi-3.1-mini-a", "phi-3.1-mini-b"}},
		Dispatcher: dispatcher,
		Completer:  completer,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return &fixture{
		orchestrator: NewOrchestrator(cfg),
		dispatcher:   dispatcher,
		completer:    completer,
	}
}

func TestAnswerHappyPath(t *testing.T) {
	f := newFixture(t, nil)

	answer, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.NoError(t, err)
	assert.Equal(t, "Tuition is $10,000 per year.", answer)

	// Query vector is closest to passage 0; it must lead the context.
	assert.Contains(t, f.completer.gotPrompt, "[https://acme.edu/tuition] Tuition is $10,000/year.")
	assert.Contains(t, f.completer.gotPrompt, "Question: What is tuition?")
	assert.Equal(t, "phi-3.1-mini-a", f.completer.gotModel)

	// Replica released after the call.
	assert.Equal(t, 0, f.dispatcher.Snapshot()["phi-3.1-mini-a"])
}

func TestAnswerHoldsReplicaDuringCompletion(t *testing.T) {
	var midFlightCount int
	f := newFixture(t, nil)
	f.completer.midFlight = func() {
		midFlightCount = f.dispatcher.Snapshot()["phi-3.1-mini-a"]
	}

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.NoError(t, err)
	assert.Equal(t, 1, midFlightCount)
	assert.Equal(t, 0, f.dispatcher.Snapshot()["phi-3.1-mini-a"])
}

func TestAnswerReleasesReplicaOnCompletionFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.err = types.NewError(types.ErrUpstreamInference, "replica timed out")
	f.completer.answer = ""

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamInference, types.GetErrorCode(err))
	assert.Equal(t, 0, f.dispatcher.Snapshot()["phi-3.1-mini-a"])
}

func TestAnswerNoReplicasLeavesCountersUntouched(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Replicas = &fakeReplicas{err: types.NewError(types.ErrNoReplicasAvailable, "none")}
	})

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Equal(t, types.ErrNoReplicasAvailable, types.GetErrorCode(err))
	assert.Empty(t, f.dispatcher.Snapshot())
	assert.Equal(t, 0, f.completer.callsCount)
}

func TestAnswerUnknownTenant(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Bundles = &fakeBundles{err: types.NewError(types.ErrNotFound, "no knowledge base")}
	})

	_, err := f.orchestrator.Answer(context.Background(), "ghost", "anything")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
	assert.Equal(t, 0, f.completer.callsCount)
}

func TestAnswerIdentityFailureIsTerminal(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Identities = &fakeIdentities{err: types.NewError(types.ErrNotFound, "no identity")}
	})

	// No default persona is substituted.
	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
	assert.Equal(t, 0, f.completer.callsCount)
}

func TestAnswerEmbeddingFailurePropagates(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Embedder = &fakeEmbedder{err: types.NewError(types.ErrUpstreamInference, "embedder down")}
	})

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamInference, types.GetErrorCode(err))
}

func TestAnswerEmptyCompletionIsUpstreamError(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.answer = "   "

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamInference, types.GetErrorCode(err))
}

func TestAnswerRecordsInferenceOutcome(t *testing.T) {
	recorder := &fakeInferenceMetrics{}
	f := newFixture(t, func(cfg *Config) {
		cfg.Metrics = recorder
	})

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.NoError(t, err)
	assert.Equal(t, []string{"phi-3.1-mini-a"}, recorder.replicas)
	assert.Equal(t, []string{"ok"}, recorder.statuses)
}

func TestAnswerRecordsInferenceFailure(t *testing.T) {
	recorder := &fakeInferenceMetrics{}
	f := newFixture(t, func(cfg *Config) {
		cfg.Metrics = recorder
	})
	f.completer.err = types.NewError(types.ErrUpstreamInference, "replica timed out")
	f.completer.answer = ""

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Equal(t, []string{"error"}, recorder.statuses)
}

func TestAnswerRecordsEmptyCompletion(t *testing.T) {
	recorder := &fakeInferenceMetrics{}
	f := newFixture(t, func(cfg *Config) {
		cfg.Metrics = recorder
	})
	f.completer.answer = "   "

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Equal(t, []string{"empty"}, recorder.statuses)
}

func TestAnswerStepsBeforeDispatchRecordNoInference(t *testing.T) {
	recorder := &fakeInferenceMetrics{}
	f := newFixture(t, func(cfg *Config) {
		cfg.Metrics = recorder
		cfg.Replicas = &fakeReplicas{err: types.NewError(types.ErrNoReplicasAvailable, "none")}
	})

	_, err := f.orchestrator.Answer(context.Background(), "acme", "What is tuition?")
	require.Error(t, err)
	assert.Empty(t, recorder.statuses)
}
