// Package gemini adapts the Gemini generate-content API to llm.Client.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/swingdesk/radar-service/internal/llm"
)

type geminiClient struct {
	client *genai.Client
}

// New creates a Gemini-backed llm.Client using the provided API key.
func New(ctx context.Context, apiKey string) (llm.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &geminiClient{client: client}, nil
}

func (c *geminiClient) Provider() string { return llm.ProviderGemini }

func (c *geminiClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	config, err := buildConfig(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, []*genai.Content{
		genai.NewContentFromParts(buildParts(req), genai.RoleUser),
	}, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}
	return &llm.Response{Text: text, Model: req.Model, Usage: usageFrom(resp)}, nil
}

func buildParts(req llm.Request) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil {
		mime := req.Image.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, mime))
	}
	return parts
}

func buildConfig(req llm.Request) (*genai.GenerateContentConfig, error) {
	system := req.System
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
	}
	if req.Schema != nil {
		raw, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		system = strings.TrimSpace(system) + "\n\nRespond with a single JSON object matching this JSON schema:\n" + string(raw)
		config.ResponseMIMEType = "application/json"
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	return config, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func usageFrom(resp *genai.GenerateContentResponse) llm.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return llm.Usage{}
	}
	m := resp.UsageMetadata
	return llm.Usage{
		InputTokens:  int64(m.PromptTokenCount),
		OutputTokens: int64(m.CandidatesTokenCount),
		TotalTokens:  int64(m.TotalTokenCount),
	}
}
