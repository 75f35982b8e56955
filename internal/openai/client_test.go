package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"

	"github.com/swingdesk/radar-service/internal/llm"
)

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-2024-08-06",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"columns\":[]}"}}],
			"usage": {"prompt_tokens": 1200, "completion_tokens": 300, "total_tokens": 1500}
		}`)
	}))
	defer srv.Close()

	client := New("test-key", option.WithBaseURL(srv.URL+"/"))
	resp, err := client.Complete(context.Background(), llm.Request{
		Model:      "gpt-4o",
		System:     "system prompt",
		Prompt:     "extract the table",
		Image:      &llm.Image{Data: []byte("img"), MIMEType: "image/png"},
		SchemaName: "radar_tabular",
		Schema:     map[string]any{"type": "object"},
		MaxTokens:  4096,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Text != `{"columns":[]}` {
		t.Errorf("Text = %q", resp.Text)
	}
	want := llm.Usage{InputTokens: 1200, OutputTokens: 300, TotalTokens: 1500}
	if resp.Usage != want {
		t.Errorf("Usage = %+v, want %+v", resp.Usage, want)
	}
	if client.Provider() != llm.ProviderOpenAI {
		t.Errorf("Provider() = %q", client.Provider())
	}

	if body["model"] != "gpt-4o" {
		t.Errorf("model = %v", body["model"])
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v", body["response_format"])
	}
	schema, _ := format["json_schema"].(map[string]any)
	if schema["name"] != "radar_tabular" || schema["strict"] != true {
		t.Errorf("json_schema = %v", schema)
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	content, _ := user["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("got %d user parts, want 2", len(content))
	}
	img, _ := content[1].(map[string]any)
	url, _ := img["image_url"].(map[string]any)
	if url["url"] != "data:image/png;base64,aW1n" {
		t.Errorf("image url = %v", url["url"])
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`)
	}))
	defer srv.Close()

	_, err := New("k", option.WithBaseURL(srv.URL+"/")).Complete(context.Background(), llm.Request{Model: "gpt-4o"})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad schema","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := New("k", option.WithBaseURL(srv.URL+"/")).Complete(context.Background(), llm.Request{Model: "gpt-4o"})
	if err == nil || !strings.Contains(err.Error(), "chat completion") {
		t.Errorf("err = %v, want wrapped chat completion error", err)
	}
}

func TestBuildParams_NoSchemaNoImage(t *testing.T) {
	p := buildParams(llm.Request{Model: "gpt-4o-mini", System: "s", Prompt: "p"})
	if p.ResponseFormat.OfJSONSchema != nil {
		t.Error("expected no response format without schema")
	}
	if len(p.Messages) != 2 {
		t.Errorf("got %d messages, want 2", len(p.Messages))
	}
}
