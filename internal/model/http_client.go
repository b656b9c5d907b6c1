// File: internal/model/http_client.go
package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/phonepilot-cli/internal/config"
)

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint. A rate
// limiter caps the outbound request rate; cloud phone-automation models
// throttle aggressively and a tight step loop hits the limit fast.
type HTTPClient struct {
	logger  *zap.Logger
	cfg     config.ModelConfig
	http    *http.Client
	limiter *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the configured endpoint.
func NewHTTPClient(logger *zap.Logger, cfg config.ModelConfig) *HTTPClient {
	return &HTTPClient{
		logger:  logger.Named("model"),
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Wire types for the chat-completions request/response.

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Request sends the accumulated conversation and returns the model's reply
// split into thinking and directive text.
func (c *HTTPClient) Request(ctx context.Context, messages []Message) (Reply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Reply{}, err
	}

	payload := chatRequest{Model: c.cfg.Name, Messages: make([]chatMessage, 0, len(messages))}
	for _, m := range messages {
		cm := chatMessage{Role: m.Role}
		if m.Screenshot != "" {
			cm.Content = append(cm.Content, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: "data:image/png;base64," + m.Screenshot},
			})
		}
		cm.Content = append(cm.Content, contentPart{Type: "text", Text: m.Text})
		payload.Messages = append(payload.Messages, cm)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("encode model request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read model response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Reply{}, fmt.Errorf("decode model response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return Reply{}, fmt.Errorf("model endpoint error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return Reply{}, fmt.Errorf("model response contains no choices")
	}

	reply := SplitReply(parsed.Choices[0].Message.Content)
	c.logger.Debug("Model reply received",
		zap.Int("thinking_len", len(reply.Thinking)),
		zap.String("action_text", reply.ActionText))
	return reply, nil
}
