package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/tourlens/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [
    {
      "index": 0,
      "finish_reason": "stop",
      "message": {"role": "assistant", "content": "{\"answer\":\"A bridge.\"}"}
    }
  ]
}`

func TestCompleteSendsImageAndSchema(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	o := New(Config{BaseURL: server.URL, APIKey: "test-key", HTTPClient: server.Client()})
	out, err := o.Complete(context.Background(), providers.Request{
		Name:      "ask_result",
		System:    "be brief",
		Prompt:    "What is this?",
		Image:     &providers.Image{Data: []byte{0xFF, 0xD8, 0xFF}, MIMEType: "image/jpeg", Detail: providers.DetailLow},
		Schema:    providers.Object("", map[string]*providers.Schema{"answer": providers.String("")}, "answer"),
		MaxTokens: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"A bridge."}`, out)

	assert.Equal(t, DefaultModel, captured["model"])
	assert.EqualValues(t, 500, captured["max_completion_tokens"])

	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "ask_result", format["json_schema"].(map[string]any)["name"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	content := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	imagePart := content[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	imageURL := imagePart["image_url"].(map[string]any)
	assert.Equal(t, "low", imageURL["detail"])
	assert.Equal(t, "data:image/jpeg;base64,/9j/", imageURL["url"])
}

func TestCompleteMapsHTTPFailureToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	o := New(Config{BaseURL: server.URL, APIKey: "test-key", HTTPClient: server.Client()})
	_, err := o.Complete(context.Background(), providers.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, providers.ErrUnavailable))
}

func TestCompleteWithoutKey(t *testing.T) {
	_, err := New(Config{}).Complete(context.Background(), providers.Request{Prompt: "hi"})
	assert.True(t, errors.Is(err, providers.ErrUnavailable))
}
