package services

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"go_branch_chat/pkg/tree"
)

func TestToOpenAIMessages(t *testing.T) {
	msgs := []tree.Message{
		{Role: tree.RoleUser, Content: "q"},
		{Role: tree.RoleAssistant, Content: "a"},
		{Role: tree.RoleUser, Content: "q2"},
	}

	got := toOpenAIMessages(&CompletionSettings{}, msgs)
	assert.Equal(t, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "q"},
		{Role: openai.ChatMessageRoleAssistant, Content: "a"},
		{Role: openai.ChatMessageRoleUser, Content: "q2"},
	}, got)

	withSystem := toOpenAIMessages(&CompletionSettings{SystemPrompt: "be brief"}, msgs)
	assert.Len(t, withSystem, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, withSystem[0].Role)
}
