// Package ai talks to the external chat-completion provider.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/config"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/sirupsen/logrus"
)

// Service is the narrow interface the handlers depend on.
type Service interface {
	Complete(ctx context.Context, messages []models.Message, modelID, userID string) (*Result, error)
}

// Usage reports the provider's token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is one successful completion.
type Result struct {
	Content string
	Usage   Usage
}

// CompletionRequest is the provider's chat-completion request body.
type CompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	User        string           `json:"user"`
}

// CompletionResponse is the provider's chat-completion response body.
type CompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int            `json:"index"`
		Message      models.Message `json:"message"`
		FinishReason string         `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client is the HTTP completion client. Requests are not retried: a failure is
// surfaced to the caller once, logged with detail, and shown to the user as a
// generic failure.
type Client struct {
	cfg        *config.ProviderConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a completion client for the configured endpoint.
func NewClient(cfg *config.ProviderConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Complete sends one chat-completion request. The caller must hold no locks:
// this is the only network-bound suspension point in a chat turn.
func (c *Client) Complete(ctx context.Context, messages []models.Message, modelID, userID string) (*Result, error) {
	reqBody := CompletionRequest{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		User:        userID,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(c.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))

	c.logger.WithFields(logrus.Fields{
		"model":    modelID,
		"messages": len(messages),
	}).Debug("Sending completion request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
			"model":  modelID,
		}).Error("Completion request failed")
		return nil, fmt.Errorf("completion request failed with status %d", resp.StatusCode)
	}

	var result CompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error.Message != "" {
		return nil, fmt.Errorf("provider error: %s", result.Error.Message)
	}

	// A missing or empty choice degrades to "no response generated" for the
	// caller, never a crash.
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no response generated")
	}

	c.logger.WithFields(logrus.Fields{
		"model":        modelID,
		"duration":     time.Since(start),
		"total_tokens": result.Usage.TotalTokens,
	}).Debug("Completion received")

	return &Result{
		Content: result.Choices[0].Message.Content,
		Usage:   result.Usage,
	}, nil
}
