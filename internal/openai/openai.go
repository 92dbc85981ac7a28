package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/lehigh-university-libraries/tourlens/internal/providers"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Config holds the OpenAI client settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// HTTPClient is optional; tests point it at an httptest server.
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	out := c
	if strings.TrimSpace(out.BaseURL) == "" {
		out.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(out.Model) == "" {
		out.Model = DefaultModel
	}
	if out.HTTPClient == nil {
		out.HTTPClient = &http.Client{Timeout: 75 * time.Second}
	}
	return out
}

// OpenAI is a provider for OpenAI chat completions
type OpenAI struct {
	cfg Config
}

// New returns a new OpenAI provider
func New(cfg Config) *OpenAI {
	return &OpenAI{cfg: cfg.withDefaults()}
}

func (o *OpenAI) Name() string {
	return "openai"
}

// Complete sends the prompt, and the image as an image_url part, to the chat
// completions API. Retries are disabled: a retry is a user-initiated rescan.
func (o *OpenAI) Complete(ctx context.Context, req providers.Request) (string, error) {
	if strings.TrimSpace(o.cfg.APIKey) == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY not set", providers.ErrUnavailable)
	}

	client := openaigo.NewClient(
		option.WithBaseURL(strings.TrimRight(strings.TrimSpace(o.cfg.BaseURL), "/")),
		option.WithAPIKey(strings.TrimSpace(o.cfg.APIKey)),
		option.WithHTTPClient(o.cfg.HTTPClient),
		option.WithMaxRetries(0),
	)

	resp, err := client.Chat.Completions.New(ctx, o.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("%w: failed to call OpenAI API: %v", providers.ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned from OpenAI", providers.ErrUnavailable)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty content returned from OpenAI", providers.ErrUnavailable)
	}
	return content, nil
}

func (o *OpenAI) buildParams(req providers.Request) openaigo.ChatCompletionNewParams {
	messages := make([]openaigo.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openaigo.SystemMessage(req.System))
	}

	if req.Image == nil {
		messages = append(messages, openaigo.UserMessage(req.Prompt))
	} else {
		detail := string(req.Image.Detail)
		if detail == "" {
			detail = string(providers.DetailHigh)
		}
		parts := []openaigo.ChatCompletionContentPartUnionParam{
			openaigo.TextContentPart(req.Prompt),
			openaigo.ImageContentPart(openaigo.ChatCompletionContentPartImageImageURLParam{
				URL:    req.Image.DataURL(),
				Detail: detail,
			}),
		}
		messages = append(messages, openaigo.UserMessage(parts))
	}

	params := openaigo.ChatCompletionNewParams{
		Model:       openaigo.ChatModel(strings.TrimSpace(o.cfg.Model)),
		Messages:    messages,
		Temperature: openaigo.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openaigo.Int(int64(req.MaxTokens))
	}

	if req.Schema != nil {
		name := req.Name
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema.Map(),
				},
			},
		}
	} else {
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return params
}
