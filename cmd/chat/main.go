package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/engine"
	"github.com/companionkit/controller/internal/persona"
)

// #region main

// chat is an in-memory REPL against the turn pipeline: no database, one
// ad hoc character, state threaded turn to turn like the server does.
func main() {
	name := flag.String("name", "Luna", "character name")
	age := flag.String("age", "22", "character age")
	occupation := flag.String("occupation", "barista", "character occupation")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment variables")
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	ctx := context.Background()
	port, err := completion.NewGemini(ctx, apiKey, completion.GeminiConfig{
		Model: os.Getenv("GEMINI_MODEL"),
	})
	if err != nil {
		log.Fatalf("failed to create completion port: %v", err)
	}
	eng := engine.New(port)

	fmt.Printf("Generating character %q...\n", *name)
	p, err := eng.CreatePersona(ctx, persona.Basics{
		Name: *name, Age: *age, Occupation: *occupation,
	})
	if err != nil {
		log.Fatalf("character generation failed: %v", err)
	}

	fmt.Printf("%s is ready. Type a message (or 'quit' to exit):\n", p.Basics.Name)

	var history []persona.Message
	affection := 50

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			continue
		}
		if msg == "quit" || msg == "exit" {
			break
		}

		turnCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		result, err := eng.ProcessTurn(turnCtx, engine.TurnInput{
			UserMessage: msg,
			Persona:     p,
			History:     history,
			Affection:   affection,
			Stage:       persona.StageFor(affection),
		})
		cancel()
		if err != nil {
			log.Printf("turn failed: %v", err)
			continue
		}

		fmt.Printf("\n%s %s\n", result.Reply.Dialogue, result.Reply.Action)
		if result.Reply.Situation != "" {
			fmt.Printf("  (%s)\n", result.Reply.Situation)
		}

		history = append(history,
			persona.Message{Role: persona.RoleUser, Content: msg},
			persona.Message{Role: persona.RoleAssistant, Content: result.Reply.Dialogue},
		)
		affection = result.UpdatedAffection
		if result.Addendum != "" {
			p.Addendum = result.Addendum
		}

		fmt.Printf("[affection=%d stage=%s turns=%d]\n\n",
			affection, persona.StageFor(affection), persona.TurnCount(history))
	}
}

// #endregion main
