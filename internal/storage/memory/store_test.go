package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) assessment.Store { return NewStore() })
}

func TestStore_SinglePartitionPerSession(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	id := "c0ffee00-1234-4abc-8def-000000000001"

	if err := s.PutProgress(ctx, &assessment.ProgressRecord{SessionID: id, UpdatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	for _, lv := range []string{"lv1", "lv2"} {
		r := &assessment.CompletionRecord{SessionID: id, Level: lv, Grades: []json.RawMessage{json.RawMessage(`{}`)}}
		if err := s.PutResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.itemCount(id); got != 3 {
		t.Errorf("itemCount() = %d, want 3 (progress + two results)", got)
	}
}

func TestStore_PutResultRejectsUnknownLevel(t *testing.T) {
	s := NewStore()
	err := s.PutResult(context.Background(), &assessment.CompletionRecord{SessionID: "x", Level: "lv9"})
	if err == nil {
		t.Error("PutResult() expected error for unknown level")
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := &assessment.ProgressRecord{SessionID: "s", Lv1Passed: true}
	if err := s.PutProgress(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.Lv2Passed = true

	got, err := s.GetProgress(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if got.Lv2Passed {
		t.Error("stored record changed through the caller's pointer")
	}
}
