package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"go_branch_chat/pkg/logging"
	"go_branch_chat/pkg/tree"
)

type CompletionResult struct {
	Content    string
	Model      string
	TokensUsed int
}

// CompletionClient answers the last user turn of messages.
type CompletionClient interface {
	Complete(ctx context.Context, settings *CompletionSettings, messages []tree.Message) (*CompletionResult, error)
}

// OpenAIClient talks to any OpenAI compatible endpoint. A client is built per
// call because the key and base URL are per-user settings.
type OpenAIClient struct {
	timeout time.Duration
}

func NewOpenAIClient(timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{timeout: timeout}
}

func toOpenAIMessages(settings *CompletionSettings, messages []tree.Message) []openai.ChatCompletionMessage {
	res := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if strings.TrimSpace(settings.SystemPrompt) != "" {
		res = append(res, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: settings.SystemPrompt,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == tree.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		res = append(res, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return res
}

func (c *OpenAIClient) Complete(ctx context.Context, settings *CompletionSettings, messages []tree.Message) (*CompletionResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		cfg.BaseURL = settings.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model:       settings.Model,
		Messages:    toOpenAIMessages(settings, messages),
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	}
	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		logging.Logger.Error("completion failed",
			"model", settings.Model,
			"api_key", MaskAPIKey(settings.APIKey),
			"error", err,
		)
		return nil, errors.Wrapf(ErrCompletionFailed, "%v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(ErrCompletionFailed, "provider returned no choices")
	}
	logging.Logger.Debug("completion done",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"elapsed", time.Since(start),
	)
	model := resp.Model
	if model == "" {
		model = settings.Model
	}
	return &CompletionResult{
		Content:    resp.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
