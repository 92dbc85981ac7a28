package ollama

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

func TestComplete(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"response":"{\"answer\":\"ok\"}","done":true}`))
	}))
	defer server.Close()

	o := New(server.URL+"/", "")
	out, err := o.Complete(context.Background(), providers.Request{
		System:    "persona",
		Prompt:    "describe",
		Image:     &providers.Image{Data: []byte("abc"), MIMEType: "image/png"},
		Schema:    providers.Object("", map[string]*providers.Schema{"answer": providers.String("")}, "answer"),
		MaxTokens: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"ok"}`, out)

	assert.Equal(t, DefaultModel, captured["model"])
	assert.Equal(t, "persona", captured["system"])
	assert.Equal(t, false, captured["stream"])
	assert.Equal(t, []any{"YWJj"}, captured["images"])
	assert.EqualValues(t, 200, captured["options"].(map[string]any)["num_predict"])

	format, ok := captured["format"].(map[string]any)
	require.True(t, ok, "schema should be sent as structured format")
	assert.Equal(t, "object", format["type"])
}

func TestCompleteWithoutSchemaUsesJSONMode(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"response":"{}"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "llama3.2-vision").Complete(context.Background(), providers.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "json", captured["format"])
	assert.Equal(t, "llama3.2-vision", captured["model"])
	assert.NotContains(t, captured, "images")
}

func TestCompleteNon200IsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL, "").Complete(context.Background(), providers.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, providers.ErrUnavailable))
	assert.Contains(t, err.Error(), "404")
}
