// Package storetest holds the behavior every assessment.Store must share.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

// Run exercises a store created fresh by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) assessment.Store) {
	t.Helper()

	t.Run("missing progress", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetProgress(context.Background(), "4f3c6a34-8a7d-4c59-9c39-5a4a1f0a2b11")
		if !errors.Is(err, assessment.ErrNotFound) {
			t.Errorf("GetProgress() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("missing result", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetResult(context.Background(), "4f3c6a34-8a7d-4c59-9c39-5a4a1f0a2b11", level.Lv2)
		if !errors.Is(err, assessment.ErrNotFound) {
			t.Errorf("GetResult() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("progress round trip and overwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := "0b7e1d9a-3c1f-4f5e-8a2b-6d4c3b2a1f00"
		at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

		p := &assessment.ProgressRecord{SessionID: id, Lv1Passed: true, UpdatedAt: at}
		if err := s.PutProgress(ctx, p); err != nil {
			t.Fatalf("PutProgress() error = %v", err)
		}
		got, err := s.GetProgress(ctx, id)
		if err != nil {
			t.Fatalf("GetProgress() error = %v", err)
		}
		if !got.Lv1Passed || got.Lv2Passed || got.Lv3Passed || got.Lv4Passed {
			t.Errorf("progress = %+v, want only lv1", got)
		}
		if !got.UpdatedAt.Equal(at) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, at)
		}

		p.Lv3Passed = true
		p.UpdatedAt = at.Add(time.Hour)
		if err := s.PutProgress(ctx, p); err != nil {
			t.Fatalf("PutProgress() error = %v", err)
		}
		got, err = s.GetProgress(ctx, id)
		if err != nil {
			t.Fatalf("GetProgress() error = %v", err)
		}
		if !got.Lv1Passed || !got.Lv3Passed {
			t.Errorf("progress = %+v, want lv1 and lv3", got)
		}
		if got.SessionID != id {
			t.Errorf("SessionID = %q, want %q", got.SessionID, id)
		}
	})

	t.Run("result round trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := "9d1b2c3e-4f5a-4b6c-9d7e-8f9a0b1c2d3e"
		at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

		r := &assessment.CompletionRecord{
			SessionID:   id,
			Level:       level.Lv2.Tag(),
			Questions:   []json.RawMessage{json.RawMessage(`{"step":1,"type":"scenario","prompt":"p"}`)},
			Answers:     []json.RawMessage{json.RawMessage(`"an answer"`)},
			Grades:      []json.RawMessage{json.RawMessage(`{"passed":true,"score":72.5}`)},
			FinalPassed: true,
			TotalScore:  72.5,
			CompletedAt: at,
		}
		if err := s.PutResult(ctx, r); err != nil {
			t.Fatalf("PutResult() error = %v", err)
		}

		got, err := s.GetResult(ctx, id, level.Lv2)
		if err != nil {
			t.Fatalf("GetResult() error = %v", err)
		}
		if got.Level != "lv2" || !got.FinalPassed || got.TotalScore != 72.5 {
			t.Errorf("result = %+v", got)
		}
		if !got.CompletedAt.Equal(at) {
			t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, at)
		}
		if len(got.Questions) != 1 || len(got.Answers) != 1 || len(got.Grades) != 1 {
			t.Fatalf("lists = %d/%d/%d, want 1/1/1", len(got.Questions), len(got.Answers), len(got.Grades))
		}
		if !sameJSON(t, got.Grades[0], r.Grades[0]) {
			t.Errorf("grade = %s, want %s", got.Grades[0], r.Grades[0])
		}

		if _, err := s.GetResult(ctx, id, level.Lv3); !errors.Is(err, assessment.ErrNotFound) {
			t.Errorf("other level error = %v, want ErrNotFound", err)
		}
	})

	t.Run("result overwrite keeps one record per level", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := "5a6b7c8d-9e0f-4a1b-8c2d-3e4f5a6b7c8d"

		for _, passed := range []bool{true, false} {
			r := &assessment.CompletionRecord{
				SessionID:   id,
				Level:       level.Lv1.Tag(),
				Questions:   []json.RawMessage{json.RawMessage(`{}`)},
				Answers:     []json.RawMessage{json.RawMessage(`"a"`)},
				Grades:      []json.RawMessage{json.RawMessage(`{}`)},
				FinalPassed: passed,
				CompletedAt: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			}
			if err := s.PutResult(ctx, r); err != nil {
				t.Fatalf("PutResult() error = %v", err)
			}
		}
		got, err := s.GetResult(ctx, id, level.Lv1)
		if err != nil {
			t.Fatalf("GetResult() error = %v", err)
		}
		if got.FinalPassed {
			t.Error("latest write should win")
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a := "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
		b := "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"

		if err := s.PutProgress(ctx, &assessment.ProgressRecord{SessionID: a, Lv1Passed: true, UpdatedAt: time.Now().UTC()}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.GetProgress(ctx, b); !errors.Is(err, assessment.ErrNotFound) {
			t.Errorf("GetProgress(b) error = %v, want ErrNotFound", err)
		}
	})
}

func sameJSON(t *testing.T, a, b json.RawMessage) bool {
	t.Helper()
	var x, y any
	if err := json.Unmarshal(a, &x); err != nil {
		t.Fatalf("unmarshal %s: %v", a, err)
	}
	if err := json.Unmarshal(b, &y); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	xs, _ := json.Marshal(x)
	ys, _ := json.Marshal(y)
	return string(xs) == string(ys)
}
