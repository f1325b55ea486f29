package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"

	"go_branch_chat/platform/cache"
)

var (
	ErrMissingUserID = errors.New("user id cannot be empty")
	ErrMissingAPIKey = errors.New("no completion api key configured")
)

// CompletionSettings is what a completion call is made with.
type CompletionSettings struct {
	UserID       string  `json:"user_id,omitempty"`
	APIKey       string  `json:"api_key"`
	BaseURL      string  `json:"base_url,omitempty"`
	Model        string  `json:"model"`
	Temperature  float32 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

func (s *CompletionSettings) Clone() *CompletionSettings {
	return clone.Clone(s).(*CompletionSettings)
}

// Masked returns a copy safe to log or send back to clients.
func (s *CompletionSettings) Masked() *CompletionSettings {
	cp := s.Clone()
	if cp.APIKey != "" {
		cp.APIKey = MaskAPIKey(cp.APIKey)
	}
	return cp
}

// SettingsOverride holds the fields a request may change. Nil and empty
// fields keep the current value.
type SettingsOverride struct {
	APIKey       string   `json:"api_key,omitempty"`
	BaseURL      string   `json:"base_url,omitempty"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float32 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
}

func (o *SettingsOverride) apply(s *CompletionSettings) {
	if o == nil {
		return
	}
	if o.APIKey != "" {
		s.APIKey = o.APIKey
	}
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		s.Model = o.Model
	}
	if o.Temperature != nil {
		s.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		s.MaxTokens = *o.MaxTokens
	}
	if o.SystemPrompt != nil {
		s.SystemPrompt = *o.SystemPrompt
	}
}

func (o *SettingsOverride) validate() error {
	if o == nil {
		return nil
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return errors.Wrapf(ErrInvalidInput, "temperature %.2f out of range [0, 2]", *o.Temperature)
	}
	if o.MaxTokens != nil && *o.MaxTokens <= 0 {
		return errors.Wrapf(ErrInvalidInput, "max_tokens must be positive, got %d", *o.MaxTokens)
	}
	return nil
}

// SettingsService keeps per-user completion settings in the cache tier.
// Users without stored settings get the process defaults.
type SettingsService struct {
	typedCache *cache.TypedCache[CompletionSettings]
	defaults   CompletionSettings
	cacheTTL   time.Duration
}

func NewSettingsService(cacheService cache.CacheService, defaults CompletionSettings, ttl time.Duration) *SettingsService {
	return &SettingsService{
		typedCache: cache.NewTypedCache[CompletionSettings](cacheService),
		defaults:   defaults,
		cacheTTL:   ttl,
	}
}

// Get returns the stored settings for userID, or a copy of the defaults.
func (s *SettingsService) Get(ctx context.Context, userID string) (*CompletionSettings, error) {
	if strings.TrimSpace(userID) == "" {
		return s.defaults.Clone(), nil
	}
	stored, exists, err := s.typedCache.Get(s.getCacheKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for user %s: %w", userID, err)
	}
	if !exists {
		cp := s.defaults.Clone()
		cp.UserID = userID
		return cp, nil
	}
	return &stored, nil
}

// Update applies override on top of the user's current settings and stores them.
func (s *SettingsService) Update(ctx context.Context, userID string, override *SettingsOverride) (*CompletionSettings, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if err := override.validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	override.apply(next)
	next.UserID = userID
	if err := s.typedCache.Set(s.getCacheKey(userID), *next, s.cacheTTL); err != nil {
		return nil, fmt.Errorf("failed to store settings for user %s: %w", userID, err)
	}
	return next, nil
}

// Resolve returns the settings one completion call should use. The override
// is applied to a copy and never stored.
func (s *SettingsService) Resolve(ctx context.Context, userID string, override *SettingsOverride) (*CompletionSettings, error) {
	if err := override.validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resolved := current.Clone()
	override.apply(resolved)
	if resolved.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return resolved, nil
}

func (s *SettingsService) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUserID
	}
	return s.typedCache.Delete(s.getCacheKey(userID))
}

func (s *SettingsService) getCacheKey(userID string) string {
	return fmt.Sprintf("completion_settings:user:%s", userID)
}

// MaskAPIKey hides all but the edges of a key, for logs and responses.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "***" + apiKey[len(apiKey)-4:]
}
