// Package httpapi exposes the companion system over HTTP: character
// creation, chat turns, quests, memory search, and conversation inspection.
// It owns the persistence flow around the engine; the engine itself stays
// free of I/O.
package httpapi

// #region imports
import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/engine"
	"github.com/companionkit/controller/internal/logging"
	"github.com/companionkit/controller/internal/recall"
	"github.com/companionkit/controller/internal/state"
)

// #endregion

// #region server

// Server wires the engine, store, recall index, and turn log together.
type Server struct {
	store   *state.Store
	engine  *engine.Engine
	recall  *recall.Index
	turnlog *logging.TurnLog
	locks   *sessionLocks
}

// NewServer creates a fully wired HTTP server. recall and turnlog may be
// nil; the corresponding features degrade gracefully.
func NewServer(store *state.Store, eng *engine.Engine, idx *recall.Index, turnlog *logging.TurnLog) *Server {
	return &Server{
		store:   store,
		engine:  eng,
		recall:  idx,
		turnlog: turnlog,
		locks:   newSessionLocks(),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/ping", s.handlePing)

	r.Route("/characters", func(r chi.Router) {
		r.Post("/", s.handleCreateCharacter)
		r.Get("/{characterID}", s.handleGetCharacter)
		r.Post("/{characterID}/chat", s.handleChat)
		r.Get("/{characterID}/quests", s.handleListQuests)
		r.Post("/{characterID}/quests", s.handleSeedQuests)
		r.Get("/{characterID}/memories", s.handleSearchMemories)
	})

	r.Get("/users/{userID}/characters", s.handleListCharacters)
	r.Get("/conversations/{conversationID}", s.handleGetConversation)
	r.Get("/conversations/{conversationID}/turns", s.handleListTurnLog)

	return r
}

// #endregion

// #region middleware

// corsMiddleware allows browser clients from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// #endregion

// #region response-helpers

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForEngineErr maps engine failures onto HTTP statuses: upstream
// completion problems are 502, everything else is treated as bad input.
func statusForEngineErr(err error) int {
	switch {
	case isCompletionErr(err):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func isCompletionErr(err error) bool {
	for _, target := range []error{
		completion.ErrMalformedOutput,
		completion.ErrUnavailable,
		completion.ErrTimeout,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// #endregion
