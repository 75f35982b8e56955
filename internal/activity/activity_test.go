package activity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/swingdesk/radar-service/internal/db"
)

type sentMessage struct {
	queueURL string
	body     string
	attrs    map[string]string
}

type mockSQS struct {
	sent []sentMessage
	err  error
}

func (m *mockSQS) SendMessage(ctx context.Context, queueURL, body string, attrs map[string]string) error {
	m.sent = append(m.sent, sentMessage{queueURL, body, attrs})
	return m.err
}

func TestPgSink_Log(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	mock := &db.MockDB{
		ExecCountFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
			gotSQL, gotArgs = sql, args
			return 1, nil
		},
	}

	err := NewPgSink(mock).Log(context.Background(), Event{
		Action:   ActionDenied,
		ActorID:  "user-1",
		OrgID:    "org-1",
		EntityID: "rf-1",
		Message:  "org_mismatch",
		Metadata: map[string]any{"origin": "upload"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotSQL, "INSERT INTO activity_logs") {
		t.Errorf("unexpected SQL: %s", gotSQL)
	}
	if gotArgs[1] != ActionDenied || gotArgs[4] != EntityRadarFile || gotArgs[5] != "rf-1" {
		t.Errorf("args = %v", gotArgs)
	}
	if gotArgs[7] != `{"origin":"upload"}` {
		t.Errorf("metadata = %v", gotArgs[7])
	}
	if id, _ := gotArgs[0].(string); id == "" {
		t.Error("expected generated id")
	}
}

func TestSQSSink_Log(t *testing.T) {
	mock := &mockSQS{}
	sink := NewSQSSink(mock, "https://sqs.example.com/audit")

	err := sink.Log(context.Background(), Event{
		Action:   ActionSuccess,
		OrgID:    "org-1",
		EntityID: "rf-1",
		Metadata: map[string]any{"hasWarning": true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mock.sent))
	}

	msg := mock.sent[0]
	if msg.queueURL != "https://sqs.example.com/audit" {
		t.Errorf("queue = %s", msg.queueURL)
	}
	if diff := cmp.Diff(map[string]string{"action": ActionSuccess, "orgId": "org-1"}, msg.attrs); diff != "" {
		t.Errorf("attrs mismatch (-want +got):\n%s", diff)
	}

	var ev Event
	if err := json.Unmarshal([]byte(msg.body), &ev); err != nil {
		t.Fatalf("body is not an event: %v", err)
	}
	if ev.Action != ActionSuccess || ev.EntityType != EntityRadarFile || ev.Metadata["hasWarning"] != true {
		t.Errorf("event = %+v", ev)
	}
	if ev.CreatedAt.IsZero() || ev.ID == "" {
		t.Error("expected stamped id and time")
	}
}

func TestRecord_SwallowsErrors(t *testing.T) {
	sink := &MockSink{LogFn: func(ctx context.Context, ev Event) error {
		return errors.New("queue down")
	}}
	Record(context.Background(), sink, Event{Action: ActionFailed, EntityID: "rf-1"})
	Record(context.Background(), nil, Event{Action: ActionFailed})

	if diff := cmp.Diff([]string{ActionFailed}, sink.Actions()); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestSQSSink_PublishError(t *testing.T) {
	sink := NewSQSSink(&mockSQS{err: errors.New("throttled")}, "q")
	err := sink.Log(context.Background(), Event{Action: ActionAllowed})
	if err == nil || !strings.Contains(err.Error(), "publish activity") {
		t.Errorf("err = %v", err)
	}
}
