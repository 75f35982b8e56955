// Package anthropic adapts the Claude messages API to llm.Client.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/swingdesk/radar-service/internal/llm"
)

const defaultMaxTokens = 4096

type claudeClient struct {
	client anthropic.Client
}

// New creates a Claude-backed llm.Client using the provided API key.
func New(apiKey string, opts ...option.RequestOption) llm.Client {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &claudeClient{client: anthropic.NewClient(opts...)}
}

func (c *claudeClient) Provider() string { return llm.ProviderAnthropic }

func (c *claudeClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.Response{
		Text:  text,
		Model: string(resp.Model),
		Usage: llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// buildParams inlines the response schema into the system prompt; Claude has
// no strict response format, so the caller validates the output.
func buildParams(req llm.Request) (anthropic.MessageNewParams, error) {
	system := req.System
	if req.Schema != nil {
		raw, err := json.Marshal(req.Schema)
		if err != nil {
			return anthropic.MessageNewParams{}, fmt.Errorf("marshal schema: %w", err)
		}
		system = strings.TrimSpace(system) + "\n\nRespond with a single JSON object only, no markdown, matching this JSON schema:\n" + string(raw)
	}

	var blocks []anthropic.ContentBlockParamUnion
	if req.Image != nil {
		encoded := base64.StdEncoding.EncodeToString(req.Image.Data)
		blocks = append(blocks, anthropic.NewImageBlockBase64(mimeOrDefault(req.Image.MIMEType), encoded))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}, nil
}

func mimeOrDefault(m string) string {
	if m == "" {
		return "image/jpeg"
	}
	return m
}
