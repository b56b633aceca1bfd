package textgen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAISummarize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Vitals are within normal range."}
			}]
		}`)
	}))
	defer srv.Close()

	m := NewOpenAI(func(o *OpenAIOptions) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})
	text, err := m.Summarize(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, "Vitals are within normal range.", text)
	assert.Equal(t, "gpt-4o-mini", got["model"])
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewOpenAI(func(o *OpenAIOptions) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})
	_, err := m.Summarize(context.Background(), "summarize")
	require.Error(t, err)
}

func TestAnthropicSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "Heart rate is critically low."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 8}
		}`)
	}))
	defer srv.Close()

	m := NewAnthropic(func(o *AnthropicOptions) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	text, err := m.Summarize(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, "Heart rate is critically low.", text)
}
