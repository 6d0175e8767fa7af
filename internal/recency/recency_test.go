package recency

import (
	"testing"
	"time"
)

func TestBestTimestamp_PriorityOrder(t *testing.T) {
	cmp := NewComparator()

	body := map[string]any{
		"created_at":    "2025-05-12T18:59:00Z",
		"date_imported": "2025-06-01T00:00:00Z",
	}
	got := cmp.BestTimestamp(body)
	want := time.Date(2025, 5, 12, 18, 59, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected created_at to win, got %v", got)
	}
}

func TestBestTimestamp_FallsThroughUnreadable(t *testing.T) {
	cmp := NewComparator()

	body := map[string]any{
		"created_at":    "not a timestamp",
		"date_imported": "2025-06-01",
	}
	got := cmp.BestTimestamp(body)
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected date_imported fallback, got %v", got)
	}
}

func TestBestTimestamp_Epoch(t *testing.T) {
	cmp := NewComparator()

	got := cmp.BestTimestamp(map[string]any{"route": "JFK_AMM"})
	if got.Unix() != 0 {
		t.Errorf("expected epoch 0, got %v", got)
	}
}

func TestNewer(t *testing.T) {
	cmp := NewComparator()

	a := map[string]any{"date_imported": "2025-05-03"}
	b := map[string]any{"date_imported": "2025-05-01"}
	if !cmp.Newer(a, b) {
		t.Error("expected a newer than b")
	}
	if cmp.Newer(b, a) {
		t.Error("expected b not newer than a")
	}
	if cmp.Newer(a, a) {
		t.Error("equal timestamps must not compare as newer")
	}
}

func TestNewComparator_CustomSources(t *testing.T) {
	cmp := NewComparator("processed_at")

	body := map[string]any{
		"created_at":   "2025-05-12T18:59:00Z",
		"processed_at": "2025-05-13T10:00:00Z",
	}
	want := time.Date(2025, 5, 13, 10, 0, 0, 0, time.UTC)
	if got := cmp.BestTimestamp(body); !got.Equal(want) {
		t.Errorf("expected processed_at only, got %v", got)
	}
}
