package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/swingdesk/radar-service/internal/llm"
	"github.com/swingdesk/radar-service/internal/prompts"
	"github.com/swingdesk/radar-service/internal/radar"
	"github.com/swingdesk/radar-service/internal/schema"
	"github.com/swingdesk/radar-service/internal/smart2move"
)

var (
	// ErrEmptyOutput is returned when the model answered with no text.
	ErrEmptyOutput = errors.New("empty model output")
	// ErrInvalidOutput is returned when the output is not JSON matching the schema.
	ErrInvalidOutput = errors.New("invalid model output")
	// ErrEmptyAnalysis is returned when a Smart2Move analysis has no body.
	ErrEmptyAnalysis = smart2move.ErrEmptyAnalysis
)

// State is where an extraction attempt stopped.
type State string

const (
	StateIdle           State = "idle"
	StateCallingExtract State = "calling_extract"
	StateParsing        State = "parsing"
	StateSuccess        State = "success"
	StateExtractFailed  State = "extract_failed"
)

// ExtractInput is one extraction call.
type ExtractInput struct {
	Config  prompts.Config
	System  string
	Prompt  string
	Image   llm.Image
	Markers smart2move.Markers
}

// Extraction is the outcome of one extraction attempt. It is returned even on
// failure so that the tokens spent can be recorded.
type Extraction struct {
	State      State
	Model      string
	Usage      llm.Usage
	Raw        []byte
	Tabular    *radar.TabularExtraction
	Smart2Move *smart2move.Result
}

// Extractor makes the single, non-retried extraction call.
type Extractor struct {
	client    llm.Client
	validator *schema.Validator
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewExtractor creates an Extractor. A zero timeout leaves the call bounded
// only by ctx.
func NewExtractor(client llm.Client, validator *schema.Validator, model string, maxTokens int, timeout time.Duration) *Extractor {
	return &Extractor{client: client, validator: validator, model: model, maxTokens: int64(maxTokens), timeout: timeout}
}

// Extract calls the model, then parses and validates its output against the
// mode's strict schema. Smart2Move output is post-processed as part of parsing.
func (e *Extractor) Extract(ctx context.Context, in ExtractInput) (*Extraction, error) {
	ext := &Extraction{State: StateIdle, Model: e.model}
	name, sch := in.Config.ExtractSchema()

	ext.State = StateCallingExtract
	callCtx, cancel := withTimeout(ctx, e.timeout)
	resp, err := e.client.Complete(callCtx, llm.Request{
		Model:      e.model,
		System:     in.System,
		Prompt:     in.Prompt,
		Image:      &in.Image,
		SchemaName: name,
		Schema:     sch,
		MaxTokens:  e.maxTokens,
	})
	cancel()
	if err != nil {
		ext.State = StateExtractFailed
		if errors.Is(err, llm.ErrEmptyResponse) {
			return ext, ErrEmptyOutput
		}
		return ext, fmt.Errorf("extract call: %w", err)
	}
	ext.Usage = resp.Usage
	if resp.Model != "" {
		ext.Model = resp.Model
	}

	ext.State = StateParsing
	if err := e.parse(ext, resp.Text, in); err != nil {
		ext.State = StateExtractFailed
		return ext, err
	}
	ext.State = StateSuccess
	return ext, nil
}

func (e *Extractor) parse(ext *Extraction, text string, in ExtractInput) error {
	text = cleanMarkdownFences(text)
	if text == "" {
		return ErrEmptyOutput
	}
	ext.Raw = []byte(text)

	name, sch := in.Config.ExtractSchema()
	if err := e.validator.Validate(name, sch, ext.Raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	if !in.Config.IsSmart2Move() {
		var tab radar.TabularExtraction
		if err := json.Unmarshal(ext.Raw, &tab); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		ext.Tabular = &tab
		return nil
	}

	var s2m smart2move.Extraction
	if err := json.Unmarshal(ext.Raw, &s2m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	res, err := smart2move.Process(s2m, in.Config.Smart2MoveGraphType, in.Markers)
	switch {
	case errors.Is(err, smart2move.ErrEmptyAnalysis):
		return ErrEmptyAnalysis
	case err != nil:
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if res.ModelGraphType != "" && res.ModelGraphType != res.GraphType {
		log.Printf("WARNING: model read graph type %q, selected %q", res.ModelGraphType, res.GraphType)
	}
	ext.Smart2Move = res
	return nil
}

// cleanMarkdownFences strips a ```json fence some models wrap JSON in.
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[7:]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
