package lighthouse

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "logs.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_AppendAndReadBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := &DecisionLog{
		AttemptID:     "a-1",
		Respondent:    "r-1",
		IP:            "203.0.113.5",
		Country:       "Canada",
		Region:        "Ontario",
		Valid:         true,
		ClipScore:     0.85,
		MatchedPrompt: "a person performing a household cleaning activity",
		PHash:         "d:00ff00ff00ff00ff",
	}
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rec.ID == 0 {
		t.Error("auto-increment id not assigned")
	}

	rows, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.Respondent != "r-1" || got.Country != "Canada" || !got.Valid || got.ClipScore != 0.85 {
		t.Errorf("row = %+v", got)
	}
}

func TestStore_SchemaCreationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")

	first, err := OpenStore(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Append(context.Background(), &DecisionLog{Respondent: "r-1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	rows, err := second.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("reopen lost rows: got %d, want 1", len(rows))
	}
}

func TestStore_RecentNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a-1", "a-2", "a-3"} {
		if err := store.Append(ctx, &DecisionLog{AttemptID: id}); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	rows, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 || rows[0].AttemptID != "a-3" || rows[1].AttemptID != "a-2" {
		t.Errorf("rows = %+v, want a-3 then a-2", rows)
	}
}

func TestStore_ConcurrentAppendsLoseNothing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := store.Append(ctx, &DecisionLog{Respondent: "r", ClipScore: float64(n)}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	rows, err := store.Recent(ctx, writers*2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != writers {
		t.Errorf("got %d rows, want %d", len(rows), writers)
	}
}
