package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/engine"
	"github.com/companionkit/controller/internal/httpapi"
	"github.com/companionkit/controller/internal/logging"
	"github.com/companionkit/controller/internal/recall"
	"github.com/companionkit/controller/internal/state"
)

// #region main
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment variables")
	}

	dbPath := envOr("COMPANION_DB", "companion.db")
	addr := envOr("HTTP_ADDR", ":8000")
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	port, err := completion.NewGemini(ctx, apiKey, completion.GeminiConfig{
		Model:      os.Getenv("GEMINI_MODEL"),
		EmbedModel: os.Getenv("GEMINI_EMBED_MODEL"),
	})
	if err != nil {
		log.Fatalf("failed to create completion port: %v", err)
	}

	// Embeddings can be disabled to save quota; search then falls back to
	// keyword matching.
	var embedder completion.Embedder
	if os.Getenv("DISABLE_EMBEDDINGS") != "true" {
		embedder = port
	}
	idx, err := recall.NewIndex(store.DB(), embedder)
	if err != nil {
		log.Fatalf("failed to init recall index: %v", err)
	}

	turnlog, err := logging.NewTurnLog(store.DB())
	if err != nil {
		log.Fatalf("failed to init turn log: %v", err)
	}

	server := httpapi.NewServer(store, engine.New(port), idx, turnlog)

	log.Printf("[MAIN] companiond listening on %s (db=%s)", addr, dbPath)
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
