package models

import (
	"time"

	"go_branch_chat/pkg/layout"
	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/pkg/tree"
)

type CreateTreeReq struct {
	Name             string `json:"name"`
	FirstUserMessage string `json:"first_user_message"`
	FirstAIResponse  string `json:"first_ai_response"`
}

type RenameTreeReq struct {
	Name string `json:"name"`
}

// ExchangeReq appends an already answered exchange at the current node.
type ExchangeReq struct {
	UserMessage string   `json:"user_message"`
	AIResponse  string   `json:"ai_response"`
	TokensUsed  *int     `json:"tokens_used,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (r *ExchangeReq) Options() []tree.ExchangeOption {
	var opts []tree.ExchangeOption
	if r.TokensUsed != nil {
		opts = append(opts, tree.WithTokensUsed(*r.TokensUsed))
	}
	if r.Model != "" {
		opts = append(opts, tree.WithModel(r.Model))
	}
	if r.Temperature != nil {
		opts = append(opts, tree.WithTemperature(*r.Temperature))
	}
	if len(r.Tags) > 0 {
		opts = append(opts, tree.WithTags(r.Tags...))
	}
	return opts
}

// AskReq sends Question to the completion provider. When ParentID is set the
// tree is focused on that node first.
type AskReq struct {
	UserID      string   `json:"user_id"`
	Question    string   `json:"question"`
	ParentID    string   `json:"parent_id,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	APIKey      string   `json:"api_key,omitempty"`
	BaseURL     string   `json:"base_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type AskRes struct {
	NodeID     string             `json:"node_id"`
	Question   string             `json:"question"`
	Answer     string             `json:"answer"`
	Model      string             `json:"model"`
	TokensUsed int                `json:"tokens_used"`
	Tree       *snapshot.Snapshot `json:"tree"`
}

type AppendRes struct {
	NodeID string             `json:"node_id"`
	Tree   *snapshot.Snapshot `json:"tree"`
}

type CreateBranchReq struct {
	ForkNodeID string `json:"fork_node_id"`
	Name       string `json:"name"`
}

type CreateBranchRes struct {
	Branch tree.Branch        `json:"branch"`
	Tree   *snapshot.Snapshot `json:"tree"`
}

type NavigateReq struct {
	NodeID string `json:"node_id"`
	Focus  bool   `json:"focus"`
}

type PositionsReq struct {
	Positions map[string]tree.Position `json:"positions"`
}

type PathRes struct {
	NodeID   string         `json:"node_id"`
	Nodes    []*tree.Node   `json:"nodes"`
	Messages []tree.Message `json:"messages"`
}

type LayoutRes struct {
	TreeID        string            `json:"tree_id"`
	CurrentNodeID string            `json:"current_node_id"`
	Nodes         []layout.NodeView `json:"nodes"`
	Edges         []layout.Edge     `json:"edges"`
	Viewport      *tree.Viewport    `json:"viewport,omitempty"`
}

type ImportReq struct {
	FileKey string `json:"file_key"`
}

type ExportRes struct {
	FileKey     string    `json:"file_key"`
	DownloadURL string    `json:"download_url"`
	Expires     time.Time `json:"expires"`
	TreeCount   int       `json:"tree_count"`
}

type RestoreFailure struct {
	TreeID string `json:"tree_id"`
	Error  string `json:"error"`
}

type RestoreRes struct {
	Restored []TreeSummary   `json:"restored"`
	Failed   []RestoreFailure `json:"failed,omitempty"`
}
