package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type openAI struct {
	client *openai.Client
	model  string
}

func newOpenAI(cfg Config) *openAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openAI{client: openai.NewClientWithConfig(oc), model: model}
}

func (o *openAI) generate(ctx context.Context, system, prompt string, limit int32) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   int(limit),
			Temperature: temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("ChatCompletion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
