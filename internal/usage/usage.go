// Package usage prices LLM token usage and records one row per call phase.
package usage

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/swingdesk/radar-service/internal/db"
	"github.com/swingdesk/radar-service/internal/llm"
)

// Phases of a radar extraction request.
const (
	PhaseExtract = "extract"
	PhaseVerify  = "verify"
)

// Error types stored on failed usage rows.
const (
	ErrorException       = "exception"
	ErrorVerifyException = "verify_exception"
)

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Prices is keyed by model prefix; the longest matching prefix wins so dated
// snapshots ("gpt-4o-2024-08-06") price like their family.
var Prices = map[string]Price{
	"gpt-4o":           {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":      {Input: 0.15, Output: 0.60},
	"gpt-4.1":          {Input: 2.00, Output: 8.00},
	"gpt-4.1-mini":     {Input: 0.40, Output: 1.60},
	"gpt-5":            {Input: 1.25, Output: 10.00},
	"gpt-5-mini":       {Input: 0.25, Output: 2.00},
	"claude-sonnet-4":  {Input: 3.00, Output: 15.00},
	"claude-haiku-4":   {Input: 1.00, Output: 5.00},
	"claude-opus-4":    {Input: 15.00, Output: 75.00},
	"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
	"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
	"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
}

// Lookup returns the price for a model, matching the longest known prefix.
func Lookup(model string) (Price, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	best := ""
	for prefix := range Prices {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Price{}, false
	}
	return Prices[best], true
}

// Cost converts token usage to USD, rounded to 6 decimals. Unknown models cost 0.
func Cost(model string, u llm.Usage) float64 {
	p, ok := Lookup(model)
	if !ok {
		if !u.IsZero() {
			log.Printf("WARNING: no price for model %q, recording cost 0", model)
		}
		return 0
	}
	usd := (float64(u.InputTokens)*p.Input + float64(u.OutputTokens)*p.Output) / 1e6
	return math.Round(usd*1e6) / 1e6
}

// Record is one persisted usage row.
type Record struct {
	ID          string
	RequestID   string
	OrgID       string
	UserID      string
	RadarFileID string
	Phase       string
	Provider    string
	Model       string
	Usage       llm.Usage
	ErrorType   string
	Origin      string
}

// Recorder persists usage rows.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// PgRecorder writes to radar_usage.
type PgRecorder struct {
	db db.DB
}

// NewPgRecorder creates a Recorder backed by Postgres.
func NewPgRecorder(database db.DB) *PgRecorder {
	return &PgRecorder{db: database}
}

func (r *PgRecorder) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Origin == "" {
		rec.Origin = "unknown"
	}
	err := r.db.Exec(ctx,
		`INSERT INTO radar_usage (id, request_id, org_id, user_id, radar_file_id, phase, provider, model,
		                          input_tokens, output_tokens, total_tokens, cost_usd, error_type, origin)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14)`,
		rec.ID, rec.RequestID, rec.OrgID, rec.UserID, rec.RadarFileID, rec.Phase, rec.Provider, rec.Model,
		rec.Usage.InputTokens, rec.Usage.OutputTokens, rec.Usage.TotalTokens, Cost(rec.Model, rec.Usage),
		rec.ErrorType, rec.Origin)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

// MonthlySpend sums recorded cost for an org since the first of the current month.
func (r *PgRecorder) MonthlySpend(ctx context.Context, orgID string) (float64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) AS spent FROM radar_usage
		 WHERE org_id = $1 AND created_at >= date_trunc('month', NOW())`, orgID)
	if err != nil {
		return 0, fmt.Errorf("query monthly spend: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	spent, _ := db.ToFloat64(rows[0]["spent"])
	return spent, nil
}
