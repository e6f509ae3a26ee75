package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrGenerationFailure reports a hosted-model call that failed or timed
	// out after the bounded retry.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrRateLimited reports an exhausted request budget, either the local
	// limiter or an upstream 429. Callers should back off, not retry.
	ErrRateLimited = errors.New("rate limited")
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatConfig holds settings for an OpenAI-compatible chat-completions API.
type ChatConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// OpenAICompatibleClient calls a hosted chat-completions endpoint. Each
// Complete makes at most two attempts: the original call plus one retry on
// a transient (network or 5xx) failure. The requests-per-minute budget is
// enforced locally so a burst of questions degrades into ErrRateLimited
// instead of upstream 429 storms.
type OpenAICompatibleClient struct {
	httpClient *http.Client
	cfg        ChatConfig
	limiter    *rate.Limiter
}

func NewOpenAICompatibleClient(cfg ChatConfig) *OpenAICompatibleClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 15
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: cfg.Timeout + 5*time.Second},
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

// Complete sends the messages and returns the generated text. Failures map
// to the error taxonomy: ErrRateLimited for budget exhaustion (never
// retried), ErrGenerationFailure for everything else after the one retry.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.limiter.Allow() {
		return "", fmt.Errorf("%w: local request budget exhausted", ErrRateLimited)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, retryable, err := c.completeOnce(ctx, messages)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrRateLimited) {
			return "", err
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrGenerationFailure, lastErr)
}

func (c *OpenAICompatibleClient) completeOnce(ctx context.Context, messages []ChatMessage) (string, bool, error) {
	reqBody := map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
		"stream":   false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("marshal llm request failed: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", false, fmt.Errorf("build llm request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures and attempt timeouts are worth one retry.
		return "", true, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read llm response failed: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", false, fmt.Errorf("%w: upstream 429: %s", ErrRateLimited, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("empty llm choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}
