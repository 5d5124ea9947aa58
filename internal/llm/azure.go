package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

const defaultAzureDeployment = "gpt-4o"

type chatMessager interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// AzureCompleter calls an Azure OpenAI chat-completion deployment.
type AzureCompleter struct {
	chat       chatMessager
	deployment string
}

// NewAzureCompleterFromEnv reads the three required settings once:
// AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and OPENAI_API_VERSION.
// AZURE_OPENAI_DEPLOYMENT overrides the deployment name.
func NewAzureCompleterFromEnv() (*AzureCompleter, error) {
	endpoint := strings.TrimSpace(os.Getenv("AZURE_OPENAI_ENDPOINT"))
	apiKey := strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY"))
	apiVersion := strings.TrimSpace(os.Getenv("OPENAI_API_VERSION"))
	var missing []string
	if endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if apiKey == "" {
		missing = append(missing, "AZURE_OPENAI_API_KEY")
	}
	if apiVersion == "" {
		missing = append(missing, "OPENAI_API_VERSION")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("azure openai not configured: missing %s", strings.Join(missing, ", "))
	}
	deployment := strings.TrimSpace(os.Getenv("AZURE_OPENAI_DEPLOYMENT"))
	if deployment == "" {
		deployment = defaultAzureDeployment
	}
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
	)
	return &AzureCompleter{chat: &client.Chat.Completions, deployment: deployment}, nil
}

func (a *AzureCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(SamplingTemperature),
	})
	if err != nil {
		return "", &CallError{Kind: classify(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &CallError{Kind: FailureEmpty, Err: errors.New("no choices in completion")}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &CallError{Kind: FailureEmpty, Err: errors.New("blank completion")}
	}
	return content, nil
}
