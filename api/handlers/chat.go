package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/api"
	"github.com/cortexa-labs/ragserve/internal/ctxkeys"
	"github.com/cortexa-labs/ragserve/types"
)

// MaxQuestionLength bounds the accepted question size in runes.
const MaxQuestionLength = 4000

// Answerer runs the chat pipeline for one question.
type Answerer interface {
	Answer(ctx context.Context, tenantID, question string) (string, error)
}

// ChatMetrics records per-request pipeline outcomes.
type ChatMetrics interface {
	RecordChatRequest(tenant, status string, duration time.Duration)
}

// ChatHandler serves POST /chat.
type ChatHandler struct {
	answerer Answerer
	metrics  ChatMetrics
	logger   *zap.Logger
}

// NewChatHandler creates the chat handler. metrics may be nil.
func NewChatHandler(answerer Answerer, metrics ChatMetrics, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		answerer: answerer,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleChat validates the request, runs the pipeline, and writes the
// answer or the mapped typed error.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := validateChatRequest(&req); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	ctx := ctxkeys.WithTenantID(r.Context(), req.TenantID)

	start := time.Now()
	answer, err := h.answerer.Answer(ctx, req.TenantID, req.Question)
	duration := time.Since(start)

	if err != nil {
		typed := types.AsError(err)
		h.record(req.TenantID, string(typed.Code), duration)
		WriteError(w, r, typed, h.logger)
		return
	}

	h.record(req.TenantID, "ok", duration)
	h.logger.Info("chat answered",
		zap.String("tenant_id", req.TenantID),
		zap.Duration("duration", duration),
	)
	WriteSuccess(w, r, api.ChatResponse{Answer: answer})
}

func (h *ChatHandler) record(tenant, status string, duration time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordChatRequest(tenant, status, duration)
	}
}

func validateChatRequest(req *api.ChatRequest) *types.Error {
	if strings.TrimSpace(req.TenantID) == "" {
		return types.NewError(types.ErrInvalidRequest, "tenant_id is required")
	}
	if strings.TrimSpace(req.Question) == "" {
		return types.NewError(types.ErrInvalidRequest, "question is required")
	}
	if len([]rune(req.Question)) > MaxQuestionLength {
		return types.NewError(types.ErrInvalidRequest, "question too long")
	}
	return nil
}
