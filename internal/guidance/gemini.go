package guidance

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the part of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend generates guidance with structured JSON output from Gemini.
type GeminiBackend struct {
	models contentGenerator
	model  string
}

// GeminiOptions configures NewGeminiBackend.
type GeminiOptions struct {
	APIKey   string
	Endpoint string // optional base URL override
	Model    string
}

// NewGeminiBackend creates a Gemini API client.
func NewGeminiBackend(ctx context.Context, opts GeminiOptions) (*GeminiBackend, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	cfg := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI}
	if opts.Endpoint != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.Endpoint}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiBackend(client.Models, opts.Model), nil
}

func newGeminiBackend(models contentGenerator, model string) *GeminiBackend {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiBackend{models: models, model: model}
}

func (g *GeminiBackend) Name() string { return "gemini" }

// Generate asks for a JSON object matching resultSchema.
func (g *GeminiBackend) Generate(ctx context.Context, system, user string) (string, error) {
	temp := float32(0.7)
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema(),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return resp.Text(), nil
}

// resultSchema is the response schema for Result.
func resultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"voiceGuidance": {
				Type:        genai.TypeString,
				Description: "The voice guidance script for the workout.",
			},
			"closedCaptions": {
				Type:        genai.TypeString,
				Description: "The closed captions for the voice guidance, including motivational prompts.",
			},
		},
		Required: []string{"voiceGuidance", "closedCaptions"},
	}
}

var _ Backend = (*GeminiBackend)(nil)
