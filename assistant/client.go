// Package assistant calls an OpenAI-compatible chat-completion endpoint on
// behalf of the intent router.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"shopbot-svc/circuitbreaker"
	"shopbot-svc/middleware"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DefaultURL     = "https://api.openai.com/v1/chat/completions"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 20 * time.Second

	maxResponseBytes = 1 << 20
)

// SystemPrompt frames every completion.
const SystemPrompt = "Ты технический помощник магазина GAMEBooster. Отвечай кратко и по делу на вопросы " +
	"о производительности ПК в играх: FPS, лаги, драйверы, настройки Windows, охлаждение. " +
	"Не выдумывай факты о товаре и не обещай возвратов."

type Config struct {
	APIKey  string
	URL     string
	Model   string
	Timeout time.Duration
}

type Client struct {
	apiKey     string
	url        string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		apiKey:     cfg.APIKey,
		url:        cfg.URL,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		breaker:    circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		logger:     logger.With(zap.String("component", "assistant")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete returns the assistant's reply to prompt. Every failure is an
// *Error; nothing else escapes.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("assistant").Start(ctx, "Complete")
	defer span.End()

	start := time.Now()
	text, err := c.complete(ctx, prompt)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
		span.RecordError(err)
		c.logger.Warn("Assistant call failed",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("kind", outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	}
	span.SetAttributes(attribute.String("assistant.outcome", outcome))
	middleware.RecordAssistantCall(outcome, elapsed)
	return text, err
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", &Error{Kind: Unavailable, Err: errors.New("no API key configured")}
	}

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.call(ctx, prompt)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return "", &Error{Kind: Unavailable, Err: err}
	}
	return text, err
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", &Error{Kind: Unavailable, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: Unavailable, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Kind: Unavailable, Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Kind: MalformedResponse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Kind: MalformedResponse, Err: errors.New("response has no choices")}
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", &Error{Kind: MalformedResponse, Err: errors.New("empty completion")}
	}
	return text, nil
}

func classifyTransport(ctx context.Context, err error) *Error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: Timeout, Err: err}
	}
	return &Error{Kind: Unavailable, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
