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

// snapshotRows bounds how many head and tail rows the verifier sees.
const snapshotRows = 6

// maxWarningIssues is how many issues are kept in the stored warning.
const maxWarningIssues = 3

// Verdict is the verification model's answer.
type Verdict struct {
	IsValid                  bool     `json:"is_valid"`
	Confidence               float64  `json:"confidence"`
	Issues                   []string `json:"issues"`
	MatchesSelectedGraphType *bool    `json:"matches_selected_graph_type,omitempty"`
}

// VerifyInput is one verification pass over a successful extraction.
type VerifyInput struct {
	Config   prompts.Config
	System   string
	Snapshot string
	Image    llm.Image
}

// Verification is the outcome of the verify phase. Err is the caught failure,
// if any; it has already been turned into Warning.
type Verification struct {
	Verdict *Verdict
	Retried bool
	Warning string
	Model   string
	Usage   llm.Usage
	Err     error
}

// Verifier makes the verification call and its single low-confidence retry.
type Verifier struct {
	client          llm.Client
	validator       *schema.Validator
	model           string
	maxTokens       int64
	timeout         time.Duration
	retryConfidence float64
}

// NewVerifier creates a Verifier. A tabular rejection below retryConfidence
// is asked again once.
func NewVerifier(client llm.Client, validator *schema.Validator, model string, maxTokens int, timeout time.Duration, retryConfidence float64) *Verifier {
	return &Verifier{
		client:          client,
		validator:       validator,
		model:           model,
		maxTokens:       int64(maxTokens),
		timeout:         timeout,
		retryConfidence: retryConfidence,
	}
}

// Verify never fails the request: any error is logged and reported as a warning.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) Verification {
	out := Verification{Model: v.model}
	prompt := prompts.VerifyInstructions(in.Config, in.Snapshot)

	verdict, usage, err := v.call(ctx, in, prompt)
	out.Usage = out.Usage.Add(usage)
	if err != nil {
		log.Printf("WARNING: verification failed: %v", err)
		out.Err = err
		out.Warning = "Verification automatique indisponible."
		return out
	}

	if !in.Config.IsSmart2Move() && !verdict.IsValid && verdict.Confidence < v.retryConfidence {
		out.Retried = true
		second, usage, err := v.call(ctx, in, prompt+prompts.RetryNudge)
		out.Usage = out.Usage.Add(usage)
		if err != nil {
			log.Printf("WARNING: verification retry failed, keeping first verdict: %v", err)
		} else {
			verdict = second
		}
	}

	out.Verdict = verdict
	out.Warning = Warning(verdict, in.Config)
	return out
}

func (v *Verifier) call(ctx context.Context, in VerifyInput, prompt string) (*Verdict, llm.Usage, error) {
	name, sch := in.Config.VerifySchema()

	callCtx, cancel := withTimeout(ctx, v.timeout)
	defer cancel()
	resp, err := v.client.Complete(callCtx, llm.Request{
		Model:      v.model,
		System:     in.System,
		Prompt:     prompt,
		Image:      &in.Image,
		SchemaName: name,
		Schema:     sch,
		MaxTokens:  v.maxTokens,
	})
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return nil, llm.Usage{}, ErrEmptyOutput
		}
		return nil, llm.Usage{}, fmt.Errorf("verify call: %w", err)
	}

	text := cleanMarkdownFences(resp.Text)
	if text == "" {
		return nil, resp.Usage, ErrEmptyOutput
	}
	if err := v.validator.Validate(name, sch, []byte(text)); err != nil {
		return nil, resp.Usage, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	var verdict Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, resp.Usage, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return &verdict, resp.Usage, nil
}

// Warning turns a verdict into the note stored on the radar file, or "" when
// there is nothing to flag.
func Warning(verdict *Verdict, cfg prompts.Config) string {
	if verdict == nil {
		return ""
	}
	var parts []string
	if !verdict.IsValid {
		var issues []string
		for _, issue := range verdict.Issues {
			if issue = strings.TrimSpace(issue); issue != "" {
				issues = append(issues, issue)
			}
			if len(issues) == maxWarningIssues {
				break
			}
		}
		if len(issues) == 0 {
			issues = []string{"Extraction jugee incoherente par la verification."}
		}
		parts = append(parts, strings.Join(issues, " | "))
	}
	if cfg.IsSmart2Move() && verdict.MatchesSelectedGraphType != nil && !*verdict.MatchesSelectedGraphType {
		parts = append(parts, fmt.Sprintf("Le graphe ne semble pas correspondre au type selectionne (%s).", cfg.Smart2MoveGraphLabel))
	}
	return strings.Join(parts, " | ")
}

type tabularSnapshot struct {
	Metadata radar.Metadata      `json:"metadata"`
	Columns  []string            `json:"columns"`
	HeadRows []radar.Shot        `json:"head_rows"`
	TailRows []radar.Shot        `json:"tail_rows"`
	RowCount int                 `json:"row_count"`
	Avg      map[string]*float64 `json:"avg"`
	Dev      map[string]*float64 `json:"dev"`
	Summary  string              `json:"summary"`
}

// TabularSnapshot bounds the prompt: header metadata, the first and last
// snapshotRows shots, the row count and the aggregates.
func TabularSnapshot(res *TabularResult) (string, error) {
	shots := res.Assembled.Shots
	head := shots[:min(len(shots), snapshotRows)]
	var tail []radar.Shot
	if len(shots) > snapshotRows {
		tail = shots[max(len(shots)-snapshotRows, snapshotRows):]
	}

	cols := make([]string, 0, len(res.Assembled.Columns))
	for _, c := range res.Assembled.Columns {
		cols = append(cols, c.Key)
	}

	b, err := json.MarshalIndent(tabularSnapshot{
		Metadata: res.Metadata,
		Columns:  cols,
		HeadRows: head,
		TailRows: tail,
		RowCount: len(shots),
		Avg:      res.Assembled.Stats.Avg,
		Dev:      res.Assembled.Stats.Dev,
		Summary:  res.Summary,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tabular snapshot: %w", err)
	}
	return string(b), nil
}

type smart2MoveSnapshot struct {
	GraphType   string                  `json:"graph_type"`
	Markers     smart2move.Markers      `json:"markers"`
	Annotations []smart2move.Annotation `json:"annotations"`
	Analysis    string                  `json:"analysis"`
}

// Smart2MoveSnapshot is the full annotation set with the analysis and markers.
func Smart2MoveSnapshot(res *smart2move.Result) (string, error) {
	b, err := json.MarshalIndent(smart2MoveSnapshot{
		GraphType:   res.GraphType,
		Markers:     res.Markers,
		Annotations: res.Annotations,
		Analysis:    res.Analysis,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("smart2move snapshot: %w", err)
	}
	return string(b), nil
}
