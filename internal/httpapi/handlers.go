package httpapi

// #region imports
import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/companionkit/controller/internal/engine"
	"github.com/companionkit/controller/internal/logging"
	"github.com/companionkit/controller/internal/persona"
	"github.com/companionkit/controller/internal/state"
)

// #endregion

// #region errors

var (
	errConversationNotFound = errors.New("conversation not found")
	errConversationMismatch = errors.New("conversation belongs to a different character")
)

// #endregion

// #region ping

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// #endregion

// #region characters

type createCharacterRequest struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Age            string `json:"age"`
	Occupation     string `json:"occupation"`
	AdditionalInfo string `json:"additional_info"`
}

type characterResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Persona   persona.Persona `json:"persona"`
	CreatedAt time.Time       `json:"created_at"`
}

func toCharacterResponse(c state.Character) characterResponse {
	return characterResponse{ID: c.ID, UserID: c.UserID, Persona: c.Persona, CreatedAt: c.CreatedAt}
}

// handleCreateCharacter generates a persona from the submitted basics and
// stores it.
func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "user_id and name are required")
		return
	}

	p, err := s.engine.CreatePersona(r.Context(), persona.Basics{
		Name:           req.Name,
		Age:            req.Age,
		Occupation:     req.Occupation,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		log.Printf("[API] create persona: %v", err)
		writeError(w, statusForEngineErr(err), "character generation failed")
		return
	}

	c, err := s.store.CreateCharacter(req.UserID, p)
	if err != nil {
		log.Printf("[API] store character: %v", err)
		writeError(w, http.StatusInternalServerError, "store character failed")
		return
	}
	writeJSON(w, http.StatusCreated, toCharacterResponse(c))
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCharacter(chi.URLParam(r, "characterID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	writeJSON(w, http.StatusOK, toCharacterResponse(c))
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCharacters(chi.URLParam(r, "userID"))
	if err != nil {
		log.Printf("[API] list characters: %v", err)
		writeError(w, http.StatusInternalServerError, "list characters failed")
		return
	}
	out := make([]characterResponse, len(list))
	for i, c := range list {
		out[i] = toCharacterResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"characters": out})
}

// #endregion

// #region chat

type chatRequest struct {
	UserID          string          `json:"user_id"`
	Message         string          `json:"message"`
	ConversationID  string          `json:"conversation_id,omitempty"`
	RoutineQuests   []persona.Quest `json:"routine_quests,omitempty"`
	MilestoneQuests []persona.Quest `json:"milestone_quests,omitempty"`
}

type chatResponse struct {
	ConversationID    string             `json:"conversation_id"`
	Reply             engine.Reply       `json:"reply"`
	Affection         int                `json:"affection"`
	RelationshipStage string             `json:"relationship_stage"`
	Quests            engine.QuestUpdate `json:"quests"`
	AddendumUpdated   bool               `json:"addendum_updated"`
	Memory            engine.FactBundle  `json:"memory"`
}

// handleChat runs one full turn: resolve the conversation, run the engine,
// persist every stage output, and report the merged result.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	char, err := s.store.GetCharacter(characterID)
	if err != nil {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}

	conv, err := s.resolveConversation(characterID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	unlock := s.locks.acquire(conv.ID)
	defer unlock()

	// Re-read under the lock so concurrent turns see committed state.
	conv, err = s.store.GetConversation(conv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load conversation failed")
		return
	}
	history, err := s.store.History(conv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load history failed")
		return
	}
	routine, err := s.store.Quests(conv.ID, persona.QuestRoutine)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load quests failed")
		return
	}
	milestone, err := s.store.Quests(conv.ID, persona.QuestMilestone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load quests failed")
		return
	}

	turnCount := persona.TurnCount(history)
	start := time.Now()
	result, err := s.engine.ProcessTurn(r.Context(), engine.TurnInput{
		UserMessage:     req.Message,
		Persona:         char.Persona,
		History:         history,
		RoutineQuests:   routine,
		MilestoneQuests: milestone,
		Affection:       conv.Affection,
		Stage:           conv.RelationshipStage,
	})
	s.logTurn(conv.ID, turnCount, conv.Affection, result, time.Since(start), err)
	if err != nil {
		log.Printf("[API] process turn: %v", err)
		writeError(w, statusForEngineErr(err), "turn failed")
		return
	}

	newStage := persona.StageFor(result.UpdatedAffection)
	if err := s.store.AppendTurn(conv.ID, req.Message, result.Reply.Dialogue, result.UpdatedAffection, newStage); err != nil {
		log.Printf("[API] append turn: %v", err)
		writeError(w, http.StatusInternalServerError, "persist turn failed")
		return
	}

	if result.Quests.Checked {
		if err := s.store.ApplyQuestUpdates(conv.ID, result.Quests.Routine); err != nil {
			log.Printf("[API] apply routine quests: %v", err)
		}
		if err := s.store.ApplyQuestUpdates(conv.ID, result.Quests.Milestone); err != nil {
			log.Printf("[API] apply milestone quests: %v", err)
		}
	}

	addendumUpdated := false
	if result.Addendum != "" && result.Addendum != char.Persona.Addendum {
		if err := s.store.UpdateAddendum(char.ID, result.Addendum); err != nil {
			log.Printf("[API] update addendum: %v", err)
		} else {
			addendumUpdated = true
		}
	}

	s.storeMemories(r, conv.ID, char.ID, result.Memory)

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID:    conv.ID,
		Reply:             result.Reply,
		Affection:         result.UpdatedAffection,
		RelationshipStage: newStage,
		Quests:            result.Quests,
		AddendumUpdated:   addendumUpdated,
		Memory:            result.Memory,
	})
}

// resolveConversation picks the session for a chat request: an explicit ID,
// the latest session with this character, or a fresh one seeded with the
// request's quest collections.
func (s *Server) resolveConversation(characterID string, req chatRequest) (state.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.store.GetConversation(req.ConversationID)
		if err != nil {
			return state.Conversation{}, errConversationNotFound
		}
		if conv.CharacterID != characterID {
			return state.Conversation{}, errConversationMismatch
		}
		return conv, nil
	}

	if conv, err := s.store.LatestConversation(characterID, req.UserID); err == nil {
		return conv, nil
	}

	conv, err := s.store.CreateConversation(characterID, req.UserID)
	if err != nil {
		return state.Conversation{}, err
	}
	if len(req.RoutineQuests) > 0 {
		if err := s.store.SeedQuests(conv.ID, persona.QuestRoutine, req.RoutineQuests); err != nil {
			return state.Conversation{}, err
		}
	}
	if len(req.MilestoneQuests) > 0 {
		if err := s.store.SeedQuests(conv.ID, persona.QuestMilestone, req.MilestoneQuests); err != nil {
			return state.Conversation{}, err
		}
	}
	return conv, nil
}

// storeMemories persists extracted facts and feeds the recall index.
// Indexing is best-effort; a failed embed must not fail the turn.
func (s *Server) storeMemories(r *http.Request, conversationID, characterID string, bundle engine.FactBundle) {
	for _, fact := range bundle.Flatten() {
		id, err := s.store.InsertMemory(conversationID, characterID, fact.Category, fact.Content)
		if err != nil {
			log.Printf("[API] insert memory: %v", err)
			continue
		}
		if s.recall != nil {
			if err := s.recall.Add(r.Context(), id, characterID, fact.Category, fact.Content); err != nil {
				log.Printf("[API] index memory: %v", err)
			}
		}
	}
}

func (s *Server) logTurn(conversationID string, turnCount, affectionBefore int, result engine.TurnResult, took time.Duration, turnErr error) {
	if s.turnlog == nil {
		return
	}
	entry := logging.TurnEntry{
		TurnID:          uuid.New().String(),
		ConversationID:  conversationID,
		TurnCount:       turnCount,
		Stages:          strings.Join(engine.RouteNames(turnCount), ","),
		AffectionBefore: affectionBefore,
		AffectionAfter:  affectionBefore,
		DurationMS:      took.Milliseconds(),
	}
	if turnErr != nil {
		entry.Error = turnErr.Error()
	} else {
		entry.AffectionAfter = result.UpdatedAffection
	}
	if err := s.turnlog.Log(entry); err != nil {
		log.Printf("[API] log turn: %v", err)
	}
}

// #endregion

// #region quests

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	routine, err := s.store.Quests(conversationID, persona.QuestRoutine)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load quests failed")
		return
	}
	milestone, err := s.store.Quests(conversationID, persona.QuestMilestone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load quests failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]persona.Quest{
		"routine":   routine,
		"milestone": milestone,
	})
}

type seedQuestsRequest struct {
	ConversationID  string          `json:"conversation_id"`
	RoutineQuests   []persona.Quest `json:"routine_quests,omitempty"`
	MilestoneQuests []persona.Quest `json:"milestone_quests,omitempty"`
}

// handleSeedQuests adds quests to an existing conversation. Already-seeded
// quest IDs keep their cleared state.
func (s *Server) handleSeedQuests(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	var req seedQuestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	conv, err := s.store.GetConversation(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if conv.CharacterID != characterID {
		writeError(w, http.StatusBadRequest, errConversationMismatch.Error())
		return
	}

	if len(req.RoutineQuests) > 0 {
		if err := s.store.SeedQuests(conv.ID, persona.QuestRoutine, req.RoutineQuests); err != nil {
			writeError(w, http.StatusInternalServerError, "seed quests failed")
			return
		}
	}
	if len(req.MilestoneQuests) > 0 {
		if err := s.store.SeedQuests(conv.ID, persona.QuestMilestone, req.MilestoneQuests); err != nil {
			writeError(w, http.StatusInternalServerError, "seed quests failed")
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "seeded"})
}

// #endregion

// #region memories

type memoryMatch struct {
	MemoryID string  `json:"memory_id"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
	Score    float64 `json:"score,omitempty"`
}

// handleSearchMemories searches the recall index when a query is given,
// otherwise lists recent memories.
func (s *Server) handleSearchMemories(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")
	query := r.URL.Query().Get("query")
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	if query != "" && s.recall != nil {
		matches, err := s.recall.Search(r.Context(), characterID, query, limit)
		if err != nil {
			log.Printf("[API] search memories: %v", err)
			writeError(w, http.StatusInternalServerError, "memory search failed")
			return
		}
		out := make([]memoryMatch, len(matches))
		for i, m := range matches {
			out[i] = memoryMatch{MemoryID: m.MemoryID, Category: m.Category, Content: m.Content, Score: m.Score}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"memories": out})
		return
	}

	records, err := s.store.ListMemories(characterID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list memories failed")
		return
	}
	out := make([]memoryMatch, len(records))
	for i, m := range records {
		out[i] = memoryMatch{MemoryID: m.ID, Category: m.Category, Content: m.Content}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"memories": out})
}

// #endregion

// #region conversations

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.GetConversation(chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	history, err := s.store.History(conv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load history failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id":    conv.ID,
		"character_id":       conv.CharacterID,
		"user_id":            conv.UserID,
		"affection":          conv.Affection,
		"relationship_stage": conv.RelationshipStage,
		"history":            history,
	})
}

func (s *Server) handleListTurnLog(w http.ResponseWriter, r *http.Request) {
	if s.turnlog == nil {
		writeError(w, http.StatusNotFound, "turn log disabled")
		return
	}
	entries, err := s.turnlog.ListByConversation(chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list turn log failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"turns": entries})
}

// #endregion
