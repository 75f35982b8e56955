// Package activity is the append-only audit trail for radar imports.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/swingdesk/radar-service/internal/awsutil"
	"github.com/swingdesk/radar-service/internal/db"
)

// Actions recorded for an extraction request.
const (
	ActionAllowed = "radar.import.allowed"
	ActionDenied  = "radar.import.denied"
	ActionFailed  = "radar.import.failed"
	ActionSuccess = "radar.import.success"
)

// EntityRadarFile is the entity type for every radar import event.
const EntityRadarFile = "radar_file"

// Event is one audit entry.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actorId,omitempty"`
	OrgID      string         `json:"orgId,omitempty"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Message    string         `json:"message,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Sink stores audit events.
type Sink interface {
	Log(ctx context.Context, ev Event) error
}

func stamp(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.EntityType == "" {
		ev.EntityType = EntityRadarFile
	}
	return ev
}

// PgSink writes events to the activity_logs table.
type PgSink struct {
	db db.DB
}

// NewPgSink creates a Postgres-backed sink.
func NewPgSink(database db.DB) *PgSink {
	return &PgSink{db: database}
}

func (s *PgSink) Log(ctx context.Context, ev Event) error {
	ev = stamp(ev)
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	err = s.db.Exec(ctx,
		`INSERT INTO activity_logs (id, action, actor_id, org_id, entity_type, entity_id, message, metadata, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8::jsonb, $9)`,
		ev.ID, ev.Action, ev.ActorID, ev.OrgID, ev.EntityType, ev.EntityID, ev.Message, string(meta), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// SQSSink publishes events as JSON to a queue consumed by the audit service.
type SQSSink struct {
	sqs      awsutil.SQSClient
	queueURL string
}

// NewSQSSink creates a queue-backed sink.
func NewSQSSink(client awsutil.SQSClient, queueURL string) *SQSSink {
	return &SQSSink{sqs: client, queueURL: queueURL}
}

func (s *SQSSink) Log(ctx context.Context, ev Event) error {
	ev = stamp(ev)
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	attrs := map[string]string{"action": ev.Action}
	if ev.OrgID != "" {
		attrs["orgId"] = ev.OrgID
	}
	if err := s.sqs.SendMessage(ctx, s.queueURL, string(body), attrs); err != nil {
		return fmt.Errorf("publish activity: %w", err)
	}
	return nil
}

// Record logs ev and swallows the error; audit failures never fail a request.
func Record(ctx context.Context, sink Sink, ev Event) {
	if sink == nil {
		return
	}
	if err := sink.Log(ctx, ev); err != nil {
		log.Printf("WARNING: activity %s for %s not recorded: %v", ev.Action, ev.EntityID, err)
	}
}
