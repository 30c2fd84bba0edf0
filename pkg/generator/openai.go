package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	"github.com/closerlabs/salesbot/internal/metrics"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.15
	DefaultMaxTokens   = 1000
)

// OpenAIConfig configures the OpenAI-backed generator.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// OpenAIGenerator implements Generator on top of the OpenAI chat API. The
// model is asked for a JSON object payload; decoding falls back to raw text
// when the model does not comply.
type OpenAIGenerator struct {
	client       openai.Client
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt string
}

// NewOpenAI creates an OpenAI generator.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	return &OpenAIGenerator{
		client:       openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// Generate calls the chat completion API with the full conversation history.
func (g *OpenAIGenerator) Generate(ctx context.Context, history []Message) (*Reply, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)

	if g.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(g.systemPrompt))
	}

	for _, msg := range history {
		switch msg.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    messages,
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(int64(g.maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	response, err := g.client.Chat.Completions.New(ctx, params)
	metrics.RecordGeneratorCall(time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	raw := response.Choices[0].Message.Content
	reply := DecodeReply(raw)

	log.Debug().
		Str("model", g.model).
		Bool("structured", reply.Structured).
		Int("history", len(history)).
		Msg("Generator reply received")

	return reply, nil
}
