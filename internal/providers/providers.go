package providers

import (
	"context"
	"encoding/base64"
	"errors"
)

// ErrUnavailable marks failures reaching the model: network errors,
// timeouts, non-2xx responses and empty completions.
var ErrUnavailable = errors.New("vision oracle unavailable")

// Detail hints how much fidelity the provider should spend on an image
type Detail string

const (
	DetailHigh Detail = "high"
	DetailLow  Detail = "low"
)

// Image is an encoded frame attached to a request
type Image struct {
	Data     []byte
	MIMEType string
	Detail   Detail
}

// DataURL renders the image as a data: URL
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Base64 returns the raw base64 payload
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Request is one completion call against a vision-capable model
type Request struct {
	// Name identifies the response shape, e.g. "scene_analysis".
	Name        string
	System      string
	Prompt      string
	Image       *Image
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Provider defines the interface for a vision oracle.
// Complete returns the raw text of the model's reply, which callers validate.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
