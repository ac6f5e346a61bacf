package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"
)

// Config selects and authenticates the completion service.
type Config struct {
	APIType    string
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// OpenAICompleter calls a chat completion endpoint in JSON object mode.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func NewOpenAICompleter(cfg Config) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("completion API key is required")
	}
	if cfg.Deployment == "" {
		return nil, errors.New("completion deployment is required")
	}

	var oc openai.ClientConfig
	switch strings.ToLower(cfg.APIType) {
	case "", APITypeAzure:
		if cfg.Endpoint == "" {
			return nil, errors.New("azure endpoint is required")
		}
		oc = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			oc.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Deployment
		oc.AzureModelMapperFunc = func(string) string { return deployment }
	case APITypeOpenAI:
		oc = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			oc.BaseURL = cfg.Endpoint
		}
	default:
		return nil, fmt.Errorf("unsupported completion API type %q", cfg.APIType)
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Deployment,
	}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("create chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
