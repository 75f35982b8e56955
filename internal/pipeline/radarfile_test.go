package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/swingdesk/radar-service/internal/db"
	"github.com/swingdesk/radar-service/internal/radar"
	"github.com/swingdesk/radar-service/internal/smart2move"
)

func TestPgFileStore_Load(t *testing.T) {
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock := &db.MockDB{
		QueryFn: func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
			if args[0] == "missing" {
				return nil, nil
			}
			return []map[string]any{{
				"id":            "rf-1",
				"org_id":        "org-1",
				"student_id":    "stu-1",
				"file_url":      "s3://radar-uploads/a.png",
				"file_mime":     "image/png",
				"original_name": "a.png",
				"source":        "Trackman",
				"status":        "pending",
				"config":        map[string]any{"graphType": "fx"},
				"updated_at":    updated,
			}}, nil
		},
	}
	store := NewPgFileStore(mock)

	f, err := store.Load(context.Background(), "rf-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &RadarFile{
		ID:           "rf-1",
		OrgID:        "org-1",
		StudentID:    "stu-1",
		FileURL:      "s3://radar-uploads/a.png",
		FileMIME:     "image/png",
		OriginalName: "a.png",
		Source:       "Trackman",
		Status:       "pending",
		Config:       map[string]any{"graphType": "fx"},
		UpdatedAt:    updated,
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPgFileStore_LoadWithoutUpdatedAt(t *testing.T) {
	mock := &db.MockDB{
		QueryFn: func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
			return []map[string]any{{
				"id":         "rf-1",
				"org_id":     "org-1",
				"file_url":   "s3://radar-uploads/a.png",
				"status":     "pending",
				"updated_at": nil,
			}}, nil
		},
	}

	f, err := NewPgFileStore(mock).Load(context.Background(), "rf-1")
	if !errors.Is(err, ErrNoVersion) {
		t.Fatalf("err = %v, want ErrNoVersion", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, should not be ErrNotFound", err)
	}
	if f != nil {
		t.Errorf("file = %+v, want nil", f)
	}
}

func TestPgFileStore_SaveTabular(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	mock := &db.MockDB{
		ExecCountFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
			gotSQL, gotArgs = sql, args
			return 1, nil
		},
	}
	file := testFile("trackman")
	file.Config = map[string]any{"origin": "upload"}

	speed := 110.0
	res := &TabularResult{
		Source: "trackman",
		Assembled: radar.Assembled{
			Columns: []radar.NormalizedColumn{{Label: "Club Speed", Key: "club_speed"}},
			Shots:   []radar.Shot{{Index: 1, Values: map[string]*float64{"club_speed": &speed}}},
		},
		Summary: "1 coup analyse.",
	}
	if err := NewPgFileStore(mock).Save(context.Background(), file, res, "Carry faux"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gotSQL, "updated_at = $11") {
		t.Error("update is not guarded by updated_at")
	}
	if len(gotArgs) != 11 {
		t.Fatalf("got %d args, want 11", len(gotArgs))
	}
	if gotArgs[0] != StatusReview || gotArgs[4] != "1 coup analyse." || gotArgs[7] != "Carry faux" {
		t.Errorf("status/summary/warning args = %v, %v, %v", gotArgs[0], gotArgs[4], gotArgs[7])
	}
	if gotArgs[2] != `[{"club_speed":110,"shot_index":1}]` {
		t.Errorf("shots = %v", gotArgs[2])
	}
	if gotArgs[6] != nil {
		t.Errorf("analytics = %v, want NULL", gotArgs[6])
	}
	if gotArgs[10] != file.UpdatedAt {
		t.Errorf("guard = %v", gotArgs[10])
	}

	var cfg map[string]any
	if err := json.Unmarshal([]byte(gotArgs[5].(string)), &cfg); err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg["origin"] != "upload" || cfg["mode"] != "tabular" || cfg["source"] != "trackman" {
		t.Errorf("config = %v", cfg)
	}
	if _, ok := file.Config["mode"]; ok {
		t.Error("Save must not mutate the loaded config")
	}
}

func TestPgFileStore_SaveSmart2Move(t *testing.T) {
	var gotArgs []any
	mock := &db.MockDB{
		ExecCountFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
			gotArgs = args
			return 1, nil
		},
	}
	res := &Smart2MoveResult{Graph: &smart2move.Result{
		GraphType:  "mz",
		GraphLabel: "Mz",
		Analysis:   "Analyse Mz - Smart2Move\n\nRotation stable.",
		Summary:    "Rotation stable.",
	}}
	if err := NewPgFileStore(mock).Save(context.Background(), testFile("smart2move"), res, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotArgs[0] != StatusReady {
		t.Errorf("status = %v", gotArgs[0])
	}
	for i := 1; i <= 3; i++ {
		if gotArgs[i] != nil {
			t.Errorf("arg %d = %v, want NULL for a graph", i+1, gotArgs[i])
		}
	}
	if gotArgs[4] != res.Graph.Analysis {
		t.Errorf("summary = %v", gotArgs[4])
	}
	cfg := gotArgs[5].(string)
	for _, want := range []string{`"mode":"smart2move_graph"`, `"graphType":"mz"`, `"summary":"Rotation stable."`} {
		if !strings.Contains(cfg, want) {
			t.Errorf("config %s missing %s", cfg, want)
		}
	}
}

func TestPgFileStore_Conflict(t *testing.T) {
	mock := &db.MockDB{
		ExecCountFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
			return 0, nil
		},
	}
	store := NewPgFileStore(mock)
	file := testFile("trackman")

	if err := store.Save(context.Background(), file, &TabularResult{}, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("Save err = %v, want ErrConflict", err)
	}
	if err := store.MarkError(context.Background(), file, MessageExtraction); !errors.Is(err, ErrConflict) {
		t.Errorf("MarkError err = %v, want ErrConflict", err)
	}
}

func TestPgFileStore_MarkError(t *testing.T) {
	var gotArgs []any
	mock := &db.MockDB{
		ExecCountFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
			gotArgs = args
			return 1, nil
		},
	}
	file := testFile("smart2move")
	if err := NewPgFileStore(mock).MarkError(context.Background(), file, MessageEmptyAnalysis); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []any{StatusError, MessageEmptyAnalysis, "rf-1", "org-1", file.UpdatedAt}
	if diff := cmp.Diff(want, gotArgs); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONObject(t *testing.T) {
	tests := []struct {
		in   any
		want map[string]any
	}{
		{map[string]any{"a": 1.0}, map[string]any{"a": 1.0}},
		{`{"a":1}`, map[string]any{"a": 1.0}},
		{[]byte(`{"a":1}`), map[string]any{"a": 1.0}},
		{nil, map[string]any{}},
		{"not json", map[string]any{}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, jsonObject(tt.in)); diff != "" {
			t.Errorf("jsonObject(%v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
