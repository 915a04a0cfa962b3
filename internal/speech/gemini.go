package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiTTSModel and DefaultGeminiVoice are used when unset.
const (
	DefaultGeminiTTSModel = "gemini-2.5-flash-preview-tts"
	DefaultGeminiVoice    = "Kore"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSynthesizer uses Gemini audio output.
type GeminiSynthesizer struct {
	models contentGenerator
	model  string
	voice  string
}

// GeminiOptions configures NewGeminiSynthesizer.
type GeminiOptions struct {
	APIKey   string
	Endpoint string
	Model    string
	Voice    string
}

// NewGeminiSynthesizer creates a Gemini TTS client.
func NewGeminiSynthesizer(ctx context.Context, opts GeminiOptions) (*GeminiSynthesizer, error) {
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
	return newGeminiSynthesizer(client.Models, opts.Model, opts.Voice), nil
}

func newGeminiSynthesizer(models contentGenerator, model, voice string) *GeminiSynthesizer {
	if model == "" {
		model = DefaultGeminiTTSModel
	}
	if voice == "" {
		voice = DefaultGeminiVoice
	}
	return &GeminiSynthesizer{models: models, model: model, voice: voice}
}

func (g *GeminiSynthesizer) Name() string { return "gemini" }

// Synthesize returns WAV audio. Raw PCM output is given a WAV header.
func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voice},
			},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return Audio{}, fmt.Errorf("gemini tts: %w", err)
	}

	var buf bytes.Buffer
	var mimeType string
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					buf.Write(part.InlineData.Data)
					if part.InlineData.MIMEType != "" {
						mimeType = part.InlineData.MIMEType
					}
				}
			}
		}
	}
	if buf.Len() == 0 {
		return Audio{}, errors.New("gemini tts returned no audio data")
	}

	if mimeType == "" || isRawPCM(mimeType) {
		params := parsePCMMimeType(mimeType)
		data := pcmToWAV(buf.Bytes(), params)
		return Audio{Data: data, MIMEType: "audio/wav", BytesPerSecond: wavByteRate(data)}, nil
	}
	return Audio{Data: buf.Bytes(), MIMEType: mimeType}, nil
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)
