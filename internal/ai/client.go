package ai

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client wraps an OpenAI-compatible chat-completion endpoint. The response
// format is pinned to JSON objects because the suggestion pipeline parses
// replies structurally.
type Client struct {
	Chat llms.Model
}

func NewClient(apiKey, endpoint, model string) (*Client, error) {
	chat, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(endpoint),
		openai.WithModel(model),
		openai.WithResponseFormat(&openai.ResponseFormat{
			Type: "json_object",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ai client: %w", err)
	}
	return &Client{Chat: chat}, nil
}
