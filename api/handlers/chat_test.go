package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/types"
)

type fakeAnswerer struct {
	answer    string
	err       error
	gotTenant string
	gotText   string
}

func (f *fakeAnswerer) Answer(ctx context.Context, tenantID, question string) (string, error) {
	f.gotTenant = tenantID
	f.gotText = question
	return f.answer, f.err
}

type recordedChat struct {
	tenant string
	status string
}

type fakeChatMetrics struct {
	records []recordedChat
}

func (f *fakeChatMetrics) RecordChatRequest(tenant, status string, duration time.Duration) {
	f.records = append(f.records, recordedChat{tenant: tenant, status: status})
}

func postChat(t *testing.T, handler *ChatHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.HandleChat(rec, req)
	return rec
}

func TestHandleChatSuccess(t *testing.T) {
	answerer := &fakeAnswerer{answer: "Tuition is $10,000 per year."}
	metrics := &fakeChatMetrics{}
	handler := NewChatHandler(answerer, metrics, zap.NewNop())

	rec := postChat(t, handler, `{"tenant_id":"acme","question":"What is tuition?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, _ := json.Marshal(resp.Data)
	assert.JSONEq(t, `{"answer":"Tuition is $10,000 per year."}`, string(data))

	assert.Equal(t, "acme", answerer.gotTenant)
	assert.Equal(t, "What is tuition?", answerer.gotText)
	require.Len(t, metrics.records, 1)
	assert.Equal(t, recordedChat{tenant: "acme", status: "ok"}, metrics.records[0])
}

func TestHandleChatErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *types.Error
		wantStatus int
	}{
		{"unknown tenant", types.NewError(types.ErrNotFound, "no knowledge base"), http.StatusNotFound},
		{"broken artifacts", types.NewError(types.ErrInvalidTenantData, "artifact mismatch"), http.StatusUnprocessableEntity},
		{"no replicas", types.NewError(types.ErrNoReplicasAvailable, "none available"), http.StatusServiceUnavailable},
		{"inference failed", types.NewError(types.ErrUpstreamInference, "replica timed out"), http.StatusBadGateway},
		{"internal", types.NewError(types.ErrInternalError, "boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &fakeChatMetrics{}
			handler := NewChatHandler(&fakeAnswerer{err: tt.err}, metrics, zap.NewNop())

			rec := postChat(t, handler, `{"tenant_id":"acme","question":"q"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.err.Code), resp.Error.Code)
			require.Len(t, metrics.records, 1)
			assert.Equal(t, string(tt.err.Code), metrics.records[0].status)
		})
	}
}

func TestHandleChatInternalErrorIsOpaque(t *testing.T) {
	err := types.NewError(types.ErrInternalError, "pq: connection refused at 10.0.0.3")
	handler := NewChatHandler(&fakeAnswerer{err: err}, nil, zap.NewNop())

	rec := postChat(t, handler, `{"tenant_id":"acme","question":"q"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestHandleChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing tenant", `{"question":"q"}`},
		{"blank tenant", `{"tenant_id":"  ","question":"q"}`},
		{"missing question", `{"tenant_id":"acme"}`},
		{"blank question", `{"tenant_id":"acme","question":"   "}`},
		{"unknown field", `{"tenant_id":"acme","question":"q","extra":true}`},
		{"not json", `tenant=acme`},
		{"oversized question", `{"tenant_id":"acme","question":"` + strings.Repeat("a", MaxQuestionLength+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answerer := &fakeAnswerer{}
			handler := NewChatHandler(answerer, nil, zap.NewNop())

			rec := postChat(t, handler, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, answerer.gotTenant, "pipeline must not run on invalid input")
		})
	}
}

func TestHandleChatForeignErrorBecomesInternal(t *testing.T) {
	handler := NewChatHandler(&fakeAnswerer{err: context.DeadlineExceeded}, nil, zap.NewNop())

	rec := postChat(t, handler, `{"tenant_id":"acme","question":"q"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrInternalError), resp.Error.Code)
}
