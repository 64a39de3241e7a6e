package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// ChatOptions tunes one completion call.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int64
}

// Client calls the Ark chat completion endpoint through its OpenAI
// compatible API.
type Client struct {
	api   openai.Client
	model string
}

// Config holds the endpoint settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient builds a chat client with a 180s request timeout; summarization
// calls over long contexts routinely take more than a minute.
func NewClient(cfg Config) *Client {
	return &Client{
		api: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(180*time.Second),
		),
		model: cfg.Model,
	}
}

// Chat sends a system + user message pair and returns the trimmed
// completion text.
func (c *Client) Chat(ctx context.Context, system, user string, opts ChatOptions) (string, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(opts.MaxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
