// Package llm defines the provider-neutral vision completion contract used by
// the extraction and verification calls.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Client sends one multimodal request and returns the raw model text.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Provider() string
}

// Image is an inline image attached to the user message.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURI encodes the image as a base64 data URI.
func (i Image) DataURI() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(i.Data))
}

// Request is a single system + user turn with an optional image and an
// optional strict JSON schema for the response.
type Request struct {
	Model      string
	System     string
	Prompt     string
	Image      *Image
	SchemaName string
	Schema     map[string]any
	MaxTokens  int64
}

// Usage counts tokens for one or more calls.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Add returns the sum of two usage records.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
	}
}

// IsZero reports whether no tokens were counted.
func (u Usage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0
}

// Response is the model text plus accounting.
type Response struct {
	Text  string
	Model string
	Usage Usage
}
