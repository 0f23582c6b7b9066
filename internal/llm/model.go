// Package llm provides LLM and embedding services using langchaingo.
package llm

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/seon-creator/SSG-EDU-Project/internal/config"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Message is a single chat message passed to the model.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration. The model name is
// passed separately so the same config can back both the chat model and the
// cheaper title/report model.
func NewModel(ctx context.Context, cfg config.Config, modelName string) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(modelName),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		// API key comes from OPENAI_API_KEY
		model, err = openai.New(
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderAnthropic:
		// API key comes from ANTHROPIC_API_KEY
		model, err = anthropic.New(
			anthropic.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
		)
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: modelName,
	}, nil
}

// Generate generates text based on a prompt.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	return response, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return response.Choices[0].Content, nil
}

// Chat generates a completion for a multi-turn conversation.
func (m *Model) Chat(ctx context.Context, messages []Message) (string, error) {
	response, err := m.llm.GenerateContent(ctx, convertMessages(messages))
	if err != nil {
		return "", fmt.Errorf("chat: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return response.Choices[0].Content, nil
}

// ChatStream generates a completion for a multi-turn conversation and streams
// content deltas on the returned channel. The error channel receives at most
// one error; both channels are closed when generation finishes.
func (m *Model) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		_, err := m.llm.GenerateContent(ctx, convertMessages(messages),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case contentChan <- string(chunk):
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			}),
		)
		if err != nil {
			errChan <- wrapFatalError(err)
		}
	}()

	return contentChan, errChan
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

func convertMessages(messages []Message) []llms.MessageContent {
	converted := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case "system":
			role = llms.ChatMessageTypeSystem
		case "assistant":
			role = llms.ChatMessageTypeAI
		}
		converted[i] = llms.TextParts(role, msg.Content)
	}
	return converted
}
