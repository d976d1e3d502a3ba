package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/engine"
	"github.com/companionkit/controller/internal/logging"
	"github.com/companionkit/controller/internal/recall"
	"github.com/companionkit/controller/internal/state"
)

// #region helpers

func testServer(t *testing.T, port *completion.Scripted) (*Server, *httptest.Server) {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	idx, err := recall.NewIndex(store.DB(), nil)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	turnlog, err := logging.NewTurnLog(store.DB())
	if err != nil {
		t.Fatalf("NewTurnLog: %v", err)
	}

	srv := NewServer(store, engine.New(port), idx, turnlog)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func replyJSON(dialogue string, score int) string {
	return fmt.Sprintf(`{"dialogue":%q,"action":"*smiles*","situation":"cafe","background":"warm light","affection_score":%d,"affection_change":2,"internal_thought":"nice"}`, dialogue, score)
}

const traitsJSON = `{"personality":"warm","quirks":"hums","speaking_style":"casual","likes":"rain","dislikes":"rush","background":"local","goals":"roastery"}`

// #endregion helpers

func TestPing(t *testing.T) {
	_, ts := testServer(t, completion.NewScripted())
	resp, err := http.Get(ts.URL + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCreateCharacterAndChat(t *testing.T) {
	port := completion.NewScripted()
	port.Push(completion.KindWorldview, "A small coastal town.")
	port.Push(completion.KindDetails, traitsJSON)
	port.Push(completion.KindRespond, replyJSON("hi there!", 54))
	port.Push(completion.KindMemory, `{"facts":["user said hello"],"emotions":[],"key_events":[],"user_info":[],"character_revelations":[]}`)

	_, ts := testServer(t, port)

	// Create the character.
	resp := postJSON(t, ts.URL+"/characters", map[string]string{
		"user_id": "user-1", "name": "Luna", "age": "22", "occupation": "barista",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created characterResponse
	decodeBody(t, resp, &created)
	if created.Persona.Traits.Personality != "warm" {
		t.Errorf("traits not stored: %+v", created.Persona.Traits)
	}

	// First chat turn creates a conversation.
	resp = postJSON(t, ts.URL+"/characters/"+created.ID+"/chat", map[string]interface{}{
		"user_id": "user-1", "message": "hello!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d", resp.StatusCode)
	}
	var chat chatResponse
	decodeBody(t, resp, &chat)
	if chat.Reply.Dialogue != "hi there!" {
		t.Errorf("dialogue = %q", chat.Reply.Dialogue)
	}
	if chat.Affection != 54 {
		t.Errorf("affection = %d, want 54", chat.Affection)
	}
	if chat.ConversationID == "" {
		t.Fatal("no conversation ID")
	}

	// Conversation history holds the appended pair.
	resp, err := http.Get(ts.URL + "/conversations/" + chat.ConversationID)
	if err != nil {
		t.Fatalf("GET conversation: %v", err)
	}
	var conv struct {
		Affection int `json:"affection"`
		History   []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"history"`
	}
	decodeBody(t, resp, &conv)
	if len(conv.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(conv.History))
	}
	if conv.Affection != 54 {
		t.Errorf("persisted affection = %d", conv.Affection)
	}

	// Extracted facts landed in the memory store.
	resp, err = http.Get(ts.URL + "/characters/" + created.ID + "/memories")
	if err != nil {
		t.Fatalf("GET memories: %v", err)
	}
	var mem struct {
		Memories []memoryMatch `json:"memories"`
	}
	decodeBody(t, resp, &mem)
	if len(mem.Memories) != 1 || mem.Memories[0].Content != "user said hello" {
		t.Errorf("memories = %+v", mem.Memories)
	}

	// Turn log recorded the turn.
	resp, err = http.Get(ts.URL + "/conversations/" + chat.ConversationID + "/turns")
	if err != nil {
		t.Fatalf("GET turns: %v", err)
	}
	var turns struct {
		Turns []logging.TurnEntry `json:"turns"`
	}
	decodeBody(t, resp, &turns)
	if len(turns.Turns) != 1 {
		t.Fatalf("turn log entries = %d, want 1", len(turns.Turns))
	}
	if turns.Turns[0].Stages != "memory" {
		t.Errorf("stages = %q, want memory", turns.Turns[0].Stages)
	}
}

func TestChat_SeedsQuestsOnNewConversation(t *testing.T) {
	port := completion.NewScripted()
	port.Push(completion.KindWorldview, "w")
	port.Push(completion.KindDetails, traitsJSON)
	port.Push(completion.KindRespond, replyJSON("hey", 50))
	port.Push(completion.KindMemory, `{"facts":[],"emotions":[],"key_events":[],"user_info":[],"character_revelations":[]}`)

	_, ts := testServer(t, port)

	resp := postJSON(t, ts.URL+"/characters", map[string]string{"user_id": "u", "name": "Luna"})
	var created characterResponse
	decodeBody(t, resp, &created)

	resp = postJSON(t, ts.URL+"/characters/"+created.ID+"/chat", map[string]interface{}{
		"user_id": "u",
		"message": "hi",
		"routine_quests": []map[string]interface{}{
			{"id": "q1", "title": "Talk about music", "description": "", "cleared": 0},
		},
	})
	var chat chatResponse
	decodeBody(t, resp, &chat)

	resp, err := http.Get(ts.URL + "/characters/" + created.ID + "/quests?conversation_id=" + chat.ConversationID)
	if err != nil {
		t.Fatalf("GET quests: %v", err)
	}
	var quests struct {
		Routine []struct {
			ID string `json:"id"`
		} `json:"routine"`
	}
	decodeBody(t, resp, &quests)
	if len(quests.Routine) != 1 || quests.Routine[0].ID != "q1" {
		t.Errorf("routine quests = %+v", quests.Routine)
	}
}

func TestSeedQuests_AfterConversationStarts(t *testing.T) {
	port := completion.NewScripted()
	port.Push(completion.KindWorldview, "w")
	port.Push(completion.KindDetails, traitsJSON)
	port.Push(completion.KindRespond, replyJSON("hey", 50))
	port.Push(completion.KindMemory, `{"facts":[],"emotions":[],"key_events":[],"user_info":[],"character_revelations":[]}`)

	_, ts := testServer(t, port)

	resp := postJSON(t, ts.URL+"/characters", map[string]string{"user_id": "u", "name": "Luna"})
	var created characterResponse
	decodeBody(t, resp, &created)

	resp = postJSON(t, ts.URL+"/characters/"+created.ID+"/chat", map[string]interface{}{
		"user_id": "u", "message": "hi",
	})
	var chat chatResponse
	decodeBody(t, resp, &chat)

	resp = postJSON(t, ts.URL+"/characters/"+created.ID+"/quests", map[string]interface{}{
		"conversation_id": chat.ConversationID,
		"milestone_quests": []map[string]interface{}{
			{"id": "m1", "title": "Ask about family", "required_affection": 60, "cleared": 0},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed status = %d, want 201", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/characters/" + created.ID + "/quests?conversation_id=" + chat.ConversationID)
	if err != nil {
		t.Fatalf("GET quests: %v", err)
	}
	var quests struct {
		Milestone []struct {
			ID string `json:"id"`
		} `json:"milestone"`
	}
	decodeBody(t, resp, &quests)
	if len(quests.Milestone) != 1 || quests.Milestone[0].ID != "m1" {
		t.Errorf("milestone quests = %+v", quests.Milestone)
	}
}

func TestSeedQuests_WrongCharacterRejected(t *testing.T) {
	port := completion.NewScripted()
	port.Push(completion.KindWorldview, "w")
	port.Push(completion.KindDetails, traitsJSON)
	port.Push(completion.KindRespond, replyJSON("hey", 50))
	port.Push(completion.KindMemory, `{"facts":[],"emotions":[],"key_events":[],"user_info":[],"character_revelations":[]}`)

	_, ts := testServer(t, port)

	resp := postJSON(t, ts.URL+"/characters", map[string]string{"user_id": "u", "name": "Luna"})
	var created characterResponse
	decodeBody(t, resp, &created)

	resp = postJSON(t, ts.URL+"/characters/"+created.ID+"/chat", map[string]interface{}{
		"user_id": "u", "message": "hi",
	})
	var chat chatResponse
	decodeBody(t, resp, &chat)

	resp = postJSON(t, ts.URL+"/characters/other-character/quests", map[string]interface{}{
		"conversation_id": chat.ConversationID,
		"routine_quests": []map[string]interface{}{
			{"id": "q1", "title": "t", "cleared": 0},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChat_UnknownCharacter(t *testing.T) {
	_, ts := testServer(t, completion.NewScripted())
	resp := postJSON(t, ts.URL+"/characters/nope/chat", map[string]string{
		"user_id": "u", "message": "hi",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestChat_CompletionFailureIsBadGateway(t *testing.T) {
	port := completion.NewScripted()
	port.Push(completion.KindWorldview, "w")
	port.Push(completion.KindDetails, traitsJSON)
	port.Fail(completion.KindRespond, completion.ErrUnavailable)

	_, ts := testServer(t, port)

	resp := postJSON(t, ts.URL+"/characters", map[string]string{"user_id": "u", "name": "Luna"})
	var created characterResponse
	decodeBody(t, resp, &created)

	resp = postJSON(t, ts.URL+"/characters/"+created.ID+"/chat", map[string]string{
		"user_id": "u", "message": "hi",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}
