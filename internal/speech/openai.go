package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAITTSModel and DefaultOpenAIVoice are used when unset.
const (
	DefaultOpenAITTSModel = "gpt-4o-mini-tts"
	DefaultOpenAIVoice    = string(openai.VoiceShimmer)
)

type speechCreator interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAISynthesizer uses the OpenAI speech endpoint with WAV output.
type OpenAISynthesizer struct {
	client speechCreator
	model  string
	voice  string
}

// OpenAIOptions configures NewOpenAISynthesizer.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
}

// NewOpenAISynthesizer creates an OpenAI TTS client.
func NewOpenAISynthesizer(opts OpenAIOptions) (*OpenAISynthesizer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return newOpenAISynthesizer(openai.NewClientWithConfig(cfg), opts.Model, opts.Voice), nil
}

func newOpenAISynthesizer(client speechCreator, model, voice string) *OpenAISynthesizer {
	if model == "" {
		model = DefaultOpenAITTSModel
	}
	if voice == "" {
		voice = DefaultOpenAIVoice
	}
	return &OpenAISynthesizer{client: client, model: model, voice: voice}
}

func (o *OpenAISynthesizer) Name() string { return "openai" }

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return Audio{}, fmt.Errorf("openai tts: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("read openai tts audio: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, errors.New("openai tts returned no audio data")
	}
	return Audio{Data: data, MIMEType: "audio/wav", BytesPerSecond: wavByteRate(data)}, nil
}

var _ Synthesizer = (*OpenAISynthesizer)(nil)
