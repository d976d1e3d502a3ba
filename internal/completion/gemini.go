package completion

// #region imports
import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// #endregion

// #region config

// GeminiConfig selects models for generation and embedding.
type GeminiConfig struct {
	Model      string // default "gemini-2.5-flash"
	EmbedModel string // default "gemini-embedding-001"
}

// kindTemperature tunes sampling per stage: creative for replies, cold for
// anything that must echo structure back faithfully.
var kindTemperature = map[Kind]float32{
	KindRespond:        0.8,
	KindQuestCheck:     0.0,
	KindMilestoneCheck: 0.0,
	KindProfile:        0.3,
	KindMemory:         0.0,
	KindWorldview:      0.7,
	KindDetails:        0.7,
}

// #endregion

// #region client

// Gemini implements Port and Embedder on the Google GenAI API.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
}

// NewGemini creates a Gemini-backed completion port.
func NewGemini(ctx context.Context, apiKey string, cfg GeminiConfig) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:     client,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
	}, nil
}

// #endregion

// #region complete

// Complete sends one stage request to Gemini and returns the raw text.
func (g *Gemini) Complete(ctx context.Context, req Request) (Result, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		var role genai.Role = genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.User, genai.RoleUser))

	temp := kindTemperature[req.Kind]
	genCfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.WantJSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return Result{}, mapTransportErr(req.Kind, err)
	}

	return Result{Text: resp.Text()}, nil
}

// #endregion

// #region embed

// Embed returns the embedding vector for a single text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		return nil, mapTransportErr("embed", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrUnavailable)
	}

	return result.Embeddings[0].Values, nil
}

// #endregion

// #region helpers

func mapTransportErr(kind Kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, kind, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, kind, err)
}

// #endregion
