package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cortexa-labs/ragserve/types"
)

// Gateway is the boundary to the shared inference gateway.
type Gateway interface {
	ListModels(ctx context.Context) ([]string, error)
	Complete(ctx context.Context, modelID, prompt string) (string, error)
}

// Config holds the inference gateway endpoint settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

// Client is an OpenAI-compatible gateway client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	temperature float64
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		temperature: temperature,
	}
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ListModels returns the ids of all models the gateway currently hosts.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return nil, err
	}
	var parsed modelListResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, types.NewError(types.ErrUpstreamInference, "decode model list").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway)
	}
	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Complete runs a chat completion on the named model and returns the raw
// answer text. The caller bounds the call through ctx.
func (c *Client) Complete(ctx context.Context, modelID, prompt string) (string, error) {
	body := completionRequest{
		Model:       modelID,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	respBody, err := c.do(ctx, http.MethodPost, "/v1/chat/completions", body)
	if err != nil {
		return "", err
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", types.NewError(types.ErrUpstreamInference, "decode completion response").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway)
	}
	if parsed.Error != nil {
		return "", types.NewError(types.ErrUpstreamInference,
			fmt.Sprintf("model %q: %s", modelID, parsed.Error.Message)).
			WithHTTPStatus(http.StatusBadGateway)
	}
	if len(parsed.Choices) == 0 {
		return "", types.NewError(types.ErrUpstreamInference,
			fmt.Sprintf("model %q returned no choices", modelID)).
			WithHTTPStatus(http.StatusBadGateway)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal gateway request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure, including the client timeout and ctx cancellation.
		return nil, types.NewError(types.ErrUpstreamInference, "inference gateway unreachable").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamInference, "read gateway response").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true)
	}
	if resp.StatusCode >= 400 {
		return nil, types.NewError(types.ErrUpstreamInference,
			fmt.Sprintf("inference gateway returned %d: %s", resp.StatusCode, truncate(respBody, 256))).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(resp.StatusCode >= 500)
	}
	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
