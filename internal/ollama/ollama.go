package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/tourlens/internal/providers"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "llava"
)

// Ollama is a provider for a local Ollama server
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (o *Ollama) Name() string {
	return "ollama"
}

// Complete calls /api/generate. The schema, when present, is passed as the
// structured output format; otherwise plain JSON mode is requested.
func (o *Ollama) Complete(ctx context.Context, req providers.Request) (string, error) {
	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	requestBody := map[string]interface{}{
		"model":   o.model,
		"prompt":  req.Prompt,
		"stream":  false,
		"options": options,
		"format":  "json",
	}
	if req.System != "" {
		requestBody["system"] = req.System
	}
	if req.Schema != nil {
		requestBody["format"] = req.Schema.Map()
	}
	if req.Image != nil {
		requestBody["images"] = []string{req.Image.Base64()}
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: failed to call Ollama API: %v", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: ollama API returned status %d: %s", providers.ErrUnavailable, resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: failed to decode Ollama response: %v", providers.ErrUnavailable, err)
	}

	if strings.TrimSpace(response.Response) == "" {
		return "", fmt.Errorf("%w: empty response from Ollama", providers.ErrUnavailable)
	}

	return response.Response, nil
}
