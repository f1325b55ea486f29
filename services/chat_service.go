package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/pkg/tree"
)

type ChatService struct {
	trees      *TreeService
	completion CompletionClient
	settings   *SettingsService
	log        *slog.Logger
}

func NewChatService(trees *TreeService, completion CompletionClient, settings *SettingsService) *ChatService {
	return &ChatService{
		trees:      trees,
		completion: completion,
		settings:   settings,
		log:        logging.Component("chat_service"),
	}
}

// Ask sends the path to the current node plus the new question to the
// completion provider and appends the answered exchange. The provider call
// runs outside the tree lock; the exchange is stored under the node and
// branch the question was asked from, even if the tree moved meanwhile.
func (s *ChatService) Ask(ctx context.Context, treeID string, req models.AskReq) (*models.AskRes, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.Wrap(ErrInvalidInput, "question is blank")
	}
	var (
		t   *tree.Tree
		err error
	)
	if req.ParentID != "" {
		t, err = s.trees.Navigate(ctx, treeID, req.ParentID, true)
	} else {
		t, err = s.trees.Get(ctx, treeID)
	}
	if err != nil {
		return nil, err
	}
	parentID := t.CurrentNodeID
	var branchID string
	if b, ok := t.ActiveBranch(); ok {
		branchID = b.ID
	}

	settings, err := s.settings.Resolve(ctx, req.UserID, &SettingsOverride{
		APIKey:      req.APIKey,
		BaseURL:     req.BaseURL,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	messages := append(tree.History(t, parentID), tree.Message{Role: tree.RoleUser, Content: question})
	s.log.Info("asking",
		"tree_id", treeID,
		"parent_id", parentID,
		"turns", len(messages),
		"model", settings.Model,
	)
	result, err := s.completion.Complete(ctx, settings, messages)
	if err != nil {
		return nil, err
	}

	tokens := result.TokensUsed
	temperature := float64(settings.Temperature)
	next, nodeID, err := s.trees.AppendExchangeAt(ctx, treeID, parentID, branchID, models.ExchangeReq{
		UserMessage: question,
		AIResponse:  result.Content,
		TokensUsed:  &tokens,
		Model:       result.Model,
		Temperature: &temperature,
		Tags:        req.Tags,
	})
	if err != nil {
		return nil, err
	}
	return &models.AskRes{
		NodeID:     nodeID,
		Question:   question,
		Answer:     result.Content,
		Model:      result.Model,
		TokensUsed: tokens,
		Tree:       snapshot.ToSnapshot(next),
	}, nil
}
