package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

type anthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicCompleter is the alternate provider, selected with
// LLM_PROVIDER=anthropic.
type AnthropicCompleter struct {
	messages anthropicMessager
	model    string
}

func NewAnthropicCompleterFromEnv() (*AnthropicCompleter, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	if model == "" {
		model = defaultAnthropicModel
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCompleter{messages: &c.Messages, model: model}, nil
}

func (a *AnthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
		Temperature: anthropic.Float(SamplingTemperature),
	})
	if err != nil {
		return "", &CallError{Kind: classify(err), Err: err}
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &CallError{Kind: FailureEmpty, Err: errors.New("blank completion")}
	}
	return sb.String(), nil
}

// NewCompleterFromEnv picks the provider from LLM_PROVIDER (azure default).
func NewCompleterFromEnv() (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))) {
	case "", "azure":
		return NewAzureCompleterFromEnv()
	case "anthropic":
		return NewAnthropicCompleterFromEnv()
	default:
		return nil, errors.New("LLM_PROVIDER must be azure or anthropic")
	}
}
