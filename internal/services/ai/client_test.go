package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/config"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(&config.ProviderConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
		MaxTokens:   300,
		Temperature: 0.5,
	}, logger)
}

func TestClient_Complete(t *testing.T) {
	var captured CompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": "Ahoy!"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{
				"prompt_tokens":     12,
				"completion_tokens": 3,
				"total_tokens":      15,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "You are a pirate."},
		{Role: models.RoleUser, Content: "hello"},
	}

	result, err := client.Complete(context.Background(), messages, "gpt-3.5-turbo", "42")
	require.NoError(t, err)
	assert.Equal(t, "Ahoy!", result.Content)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Equal(t, 12, result.Usage.PromptTokens)

	assert.Equal(t, "gpt-3.5-turbo", captured.Model)
	assert.Equal(t, messages, captured.Messages)
	assert.Equal(t, 300, captured.MaxTokens)
	assert.Equal(t, 0.5, captured.Temperature)
	assert.Equal(t, "42", captured.User)
}

func TestClient_CompleteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), nil, "gpt-3.5-turbo", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_CompleteProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "model overloaded"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), nil, "gpt-3.5-turbo", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestClient_CompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "cmpl-2",
			"choices": []interface{}{},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), nil, "gpt-3.5-turbo", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response generated")
}

func TestClient_CompleteMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), nil, "gpt-3.5-turbo", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestClient_CompleteContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	_, err := client.Complete(ctx, nil, "gpt-3.5-turbo", "42")
	assert.Error(t, err)
}
