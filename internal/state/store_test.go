package state

import (
	"path/filepath"
	"testing"

	"github.com/companionkit/controller/internal/persona"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPersona() persona.Persona {
	return persona.Persona{
		Basics:    persona.Basics{Name: "Luna", Age: "22", Occupation: "barista"},
		Worldview: "a quiet coastal town",
		Traits:    persona.TraitBundle{Personality: "warm", Likes: "rainy mornings"},
	}
}

func TestCreateAndGetCharacter(t *testing.T) {
	s := tempDB(t)

	c, err := s.CreateCharacter("user-1", testPersona())
	if err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected non-empty character ID")
	}

	got, err := s.GetCharacter(c.ID)
	if err != nil {
		t.Fatalf("GetCharacter: %v", err)
	}
	if got.Persona.Basics.Name != "Luna" {
		t.Errorf("Name = %q", got.Persona.Basics.Name)
	}
	if got.Persona.Traits.Personality != "warm" {
		t.Errorf("Personality = %q", got.Persona.Traits.Personality)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q", got.UserID)
	}
}

func TestListCharactersByUser(t *testing.T) {
	s := tempDB(t)

	if _, err := s.CreateCharacter("user-1", testPersona()); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}
	if _, err := s.CreateCharacter("user-2", testPersona()); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	list, err := s.ListCharacters("user-1")
	if err != nil {
		t.Fatalf("ListCharacters: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d characters, want 1", len(list))
	}
}

func TestUpdateAddendum(t *testing.T) {
	s := tempDB(t)
	c, err := s.CreateCharacter("user-1", testPersona())
	if err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	if err := s.UpdateAddendum(c.ID, "learned to like jazz"); err != nil {
		t.Fatalf("UpdateAddendum: %v", err)
	}
	got, err := s.GetCharacter(c.ID)
	if err != nil {
		t.Fatalf("GetCharacter: %v", err)
	}
	if got.Persona.Addendum != "learned to like jazz" {
		t.Errorf("Addendum = %q", got.Persona.Addendum)
	}

	if err := s.UpdateAddendum("missing-id", "x"); err == nil {
		t.Error("expected error for unknown character")
	}
}

func TestConversationLifecycle(t *testing.T) {
	s := tempDB(t)
	c, err := s.CreateCharacter("user-1", testPersona())
	if err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	conv, err := s.CreateConversation(c.ID, "user-1")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.Affection != 50 {
		t.Errorf("initial affection = %d, want 50", conv.Affection)
	}
	if conv.RelationshipStage != persona.StageFriend {
		t.Errorf("initial stage = %q", conv.RelationshipStage)
	}

	if err := s.AppendTurn(conv.ID, "hi!", "hello there", 55, persona.StageFor(55)); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.AppendTurn(conv.ID, "how are you?", "doing great", 58, persona.StageFor(58)); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	history, err := s.History(conv.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[0].Role != persona.RoleUser || history[1].Role != persona.RoleAssistant {
		t.Errorf("role order wrong: %v", history)
	}
	if history[3].Content != "doing great" {
		t.Errorf("last message = %q", history[3].Content)
	}

	got, err := s.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.Affection != 58 {
		t.Errorf("affection = %d, want 58", got.Affection)
	}

	latest, err := s.LatestConversation(c.ID, "user-1")
	if err != nil {
		t.Fatalf("LatestConversation: %v", err)
	}
	if latest.ID != conv.ID {
		t.Errorf("latest = %s, want %s", latest.ID, conv.ID)
	}
}

func TestQuestClearedNeverRegresses(t *testing.T) {
	s := tempDB(t)
	c, err := s.CreateCharacter("user-1", testPersona())
	if err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}
	conv, err := s.CreateConversation(c.ID, "user-1")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	quests := []persona.Quest{
		{ID: "q1", Title: "Talk about music"},
		{ID: "q2", Title: "Share a secret"},
	}
	if err := s.SeedQuests(conv.ID, persona.QuestRoutine, quests); err != nil {
		t.Fatalf("SeedQuests: %v", err)
	}

	if err := s.SetQuestCleared(conv.ID, "q1"); err != nil {
		t.Fatalf("SetQuestCleared: %v", err)
	}
	// Re-seeding must not reset the cleared flag.
	if err := s.SeedQuests(conv.ID, persona.QuestRoutine, quests); err != nil {
		t.Fatalf("SeedQuests again: %v", err)
	}

	got, err := s.Quests(conv.ID, persona.QuestRoutine)
	if err != nil {
		t.Fatalf("Quests: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d quests, want 2", len(got))
	}
	for _, q := range got {
		if q.ID == "q1" && q.Cleared != 1 {
			t.Error("q1 cleared flag regressed")
		}
		if q.ID == "q2" && q.Cleared != 0 {
			t.Error("q2 cleared without being set")
		}
	}
}

func TestApplyQuestUpdates(t *testing.T) {
	s := tempDB(t)
	c, _ := s.CreateCharacter("user-1", testPersona())
	conv, _ := s.CreateConversation(c.ID, "user-1")

	if err := s.SeedQuests(conv.ID, persona.QuestMilestone, []persona.Quest{
		{ID: "m1", Title: "Open up", RequiredAffection: 60},
	}); err != nil {
		t.Fatalf("SeedQuests: %v", err)
	}

	if err := s.ApplyQuestUpdates(conv.ID, []persona.Quest{{ID: "m1", Cleared: 1}}); err != nil {
		t.Fatalf("ApplyQuestUpdates: %v", err)
	}

	got, err := s.Quests(conv.ID, persona.QuestMilestone)
	if err != nil {
		t.Fatalf("Quests: %v", err)
	}
	if got[0].Cleared != 1 {
		t.Error("milestone not cleared")
	}
}

func TestMemories(t *testing.T) {
	s := tempDB(t)
	c, _ := s.CreateCharacter("user-1", testPersona())
	conv, _ := s.CreateConversation(c.ID, "user-1")

	id, err := s.InsertMemory(conv.ID, c.ID, "facts", "user likes coffee")
	if err != nil {
		t.Fatalf("InsertMemory: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty memory ID")
	}
	if _, err := s.InsertMemory(conv.ID, c.ID, "emotions", "felt excited"); err != nil {
		t.Fatalf("InsertMemory: %v", err)
	}

	got, err := s.ListMemories(c.ID, 10)
	if err != nil {
		t.Fatalf("ListMemories: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d memories, want 2", len(got))
	}
}
