package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/companionkit/controller/internal/logging"
	"github.com/companionkit/controller/internal/persona"
	"github.com/companionkit/controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to companion.db")
	characterID := flag.String("character", "", "show character detail and memories")
	conversationID := flag.String("conversation", "", "show conversation history, quests, and turn log")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *dbPath == "" || (*characterID == "" && *conversationID == "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/companion.db --character id [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --db path/to/companion.db --conversation id [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *characterID != "" {
		err = inspectCharacter(store, *characterID, *jsonOut)
	} else {
		err = inspectConversation(store, *conversationID, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region character-mode

func inspectCharacter(store *state.Store, id string, jsonOut bool) error {
	c, err := store.GetCharacter(id)
	if err != nil {
		return err
	}
	memories, err := store.ListMemories(id, 50)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"character": c,
			"memories":  memories,
		})
	}

	fmt.Printf("Character %s (user %s)\n", c.ID, c.UserID)
	fmt.Printf("  Name: %s, Age: %s, Occupation: %s\n",
		c.Persona.Basics.Name, c.Persona.Basics.Age, c.Persona.Basics.Occupation)
	fmt.Printf("  Personality: %s\n", c.Persona.Traits.Personality)
	if c.Persona.Addendum != "" {
		fmt.Printf("\nAddendum:\n%s\n", c.Persona.Addendum)
	}
	fmt.Printf("\nMemories (%d):\n", len(memories))
	for _, m := range memories {
		fmt.Printf("  [%s] %s\n", m.Category, m.Content)
	}
	return nil
}

// #endregion character-mode

// #region conversation-mode

func inspectConversation(store *state.Store, id string, jsonOut bool) error {
	conv, err := store.GetConversation(id)
	if err != nil {
		return err
	}
	history, err := store.History(id)
	if err != nil {
		return err
	}
	routine, err := store.Quests(id, persona.QuestRoutine)
	if err != nil {
		return err
	}
	milestone, err := store.Quests(id, persona.QuestMilestone)
	if err != nil {
		return err
	}

	turnlog, err := logging.NewTurnLog(store.DB())
	if err != nil {
		return err
	}
	turns, err := turnlog.ListByConversation(id)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"conversation":     conv,
			"history":          history,
			"routine_quests":   routine,
			"milestone_quests": milestone,
			"turn_log":         turns,
		})
	}

	fmt.Printf("Conversation %s (character %s, user %s)\n", conv.ID, conv.CharacterID, conv.UserID)
	fmt.Printf("  Affection: %d  Stage: %s  Turns: %d\n",
		conv.Affection, conv.RelationshipStage, persona.TurnCount(history))

	fmt.Printf("\nQuests:\n")
	for _, q := range routine {
		fmt.Printf("  [routine]   %s cleared=%d\n", q.Title, q.Cleared)
	}
	for _, q := range milestone {
		fmt.Printf("  [milestone] %s cleared=%d (requires %d)\n", q.Title, q.Cleared, q.RequiredAffection)
	}

	fmt.Printf("\nHistory:\n")
	for _, m := range history {
		fmt.Printf("  %s: %s\n", m.Role, m.Content)
	}

	fmt.Printf("\nTurn log (%d entries):\n", len(turns))
	for _, t := range turns {
		status := "ok"
		if t.Error != "" {
			status = "error: " + t.Error
		}
		fmt.Printf("  turn %d stages=%s affection %d→%d %dms %s\n",
			t.TurnCount, t.Stages, t.AffectionBefore, t.AffectionAfter, t.DurationMS, status)
	}
	return nil
}

// #endregion conversation-mode

// #region helpers

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
