package journal

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"kakeibot/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"), logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	records := []domain.ParsedRecord{
		{Amount: 500, Description: "コーヒー"},
		{Amount: 1500, Category: "昼食", Description: "ラーメン"},
		{Amount: 980, Category: "書籍", Description: "技術書"},
	}
	for _, rec := range records {
		if err := s.Append(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Newest first.
	if entries[0].Description != "技術書" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[2].Amount != 500 || entries[2].Category != "" {
		t.Errorf("last entry = %+v", entries[2])
	}
}

func TestRecent_Limit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, domain.ParsedRecord{Amount: i + 1, Description: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestTotal(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	total, err := s.Total(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("empty journal total = %d", total)
	}

	s.Append(ctx, domain.ParsedRecord{Amount: 500, Description: "a"})
	s.Append(ctx, domain.ParsedRecord{Amount: 1500, Description: "b"})

	total, err = s.Total(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2000 {
		t.Errorf("total = %d, want 2000", total)
	}
}
