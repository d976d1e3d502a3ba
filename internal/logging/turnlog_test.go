package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupLog(t *testing.T) *TurnLog {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	l, err := NewTurnLog(db)
	if err != nil {
		t.Fatalf("NewTurnLog: %v", err)
	}
	return l
}

// #endregion helpers

func TestLogAndList(t *testing.T) {
	l := setupLog(t)

	entries := []TurnEntry{
		{
			TurnID:          "t1",
			ConversationID:  "conv-1",
			TurnCount:       0,
			Stages:          "memory",
			AffectionBefore: 50,
			AffectionAfter:  52,
			DurationMS:      840,
			CreatedAt:       time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			TurnID:          "t2",
			ConversationID:  "conv-1",
			TurnCount:       1,
			Stages:          "memory",
			AffectionBefore: 52,
			AffectionAfter:  51,
			DurationMS:      790,
			Error:           "completion call timed out",
			CreatedAt:       time.Date(2026, 8, 1, 10, 1, 0, 0, time.UTC),
		},
	}
	for _, e := range entries {
		if err := l.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	// Different conversation must not leak into the listing.
	if err := l.Log(TurnEntry{TurnID: "t3", ConversationID: "conv-2", Stages: "memory"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := l.ListByConversation("conv-1")
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].TurnID != "t1" || got[1].TurnID != "t2" {
		t.Errorf("order wrong: %s, %s", got[0].TurnID, got[1].TurnID)
	}
	if got[0].Error != "" {
		t.Errorf("entry 1 error = %q, want empty", got[0].Error)
	}
	if got[1].Error != "completion call timed out" {
		t.Errorf("entry 2 error = %q", got[1].Error)
	}
	if got[0].AffectionAfter != 52 {
		t.Errorf("AffectionAfter = %d", got[0].AffectionAfter)
	}
}

func TestLog_DefaultsCreatedAt(t *testing.T) {
	l := setupLog(t)
	if err := l.Log(TurnEntry{TurnID: "t1", ConversationID: "c", Stages: ""}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	got, err := l.ListByConversation("c")
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
}
