package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/reviewgen/pkg/types"
)

var jaSampling = types.Sampling{Temperature: 0.95, TopP: 0.95, MaxTokens: 300, FrequencyPenalty: 0.4, PresencePenalty: 0.4}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestOpenAICompleteSendsSampling(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("  最高の夜だった  "))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/v1", "", time.Second, srv.Client(), nil)
	out, err := c.Complete(context.Background(), "sys", "user prompt", jaSampling)
	require.NoError(t, err)
	assert.Equal(t, "  最高の夜だった  ", out)

	assert.Equal(t, DefaultModel, got["model"])
	assert.InDelta(t, 0.95, got["temperature"], 1e-6)
	assert.InDelta(t, 0.4, got["frequency_penalty"], 1e-6)
	assert.EqualValues(t, 300, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user prompt", msgs[1].(map[string]any)["content"])
}

func TestOpenAICompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, KindAuth},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, KindQuota},
		{"server", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAI("sk-test", srv.URL+"/v1", "", time.Second, srv.Client(), nil)
			_, err := c.Complete(context.Background(), "sys", "user", jaSampling)
			require.Error(t, err)
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.want, cerr.Kind)
			assert.Equal(t, tt.status, cerr.Status)
		})
	}
}

func TestOpenAICompleteEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(""))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/v1", "", time.Second, srv.Client(), nil)
	_, err := c.Complete(context.Background(), "sys", "user", jaSampling)
	assert.Equal(t, KindEmpty, KindOf(err))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAICompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/v1", "", 30*time.Millisecond, srv.Client(), nil)
	_, err := c.Complete(context.Background(), "sys", "user", jaSampling)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestOpenAICompleteNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOpenAI("sk-test", url+"/v1", "", time.Second, nil, nil)
	_, err := c.Complete(context.Background(), "sys", "user", jaSampling)
	assert.Equal(t, KindNetwork, KindOf(err))
}
