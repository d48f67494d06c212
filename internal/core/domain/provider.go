package domain

import (
	"strings"
	"time"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
)

func ParseProvider(raw string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderOpenAI:
		return ProviderOpenAI, true
	case ProviderAnthropic:
		return ProviderAnthropic, true
	case ProviderGoogle, "gemini":
		return ProviderGoogle, true
	case ProviderOllama:
		return ProviderOllama, true
	default:
		return "", false
	}
}

// RequiresAPIKey reports whether calls to the provider need a credential.
func (p Provider) RequiresAPIKey() bool {
	return p != ProviderOllama
}

type ModelRef struct {
	Provider Provider `json:"provider"`
	Name     string   `json:"name"`
}

func (m ModelRef) String() string {
	return string(m.Provider) + "/" + m.Name
}

// TenantSettings carries the per-tenant provider configuration. Empty fields
// defer to the global tenant and then to the process environment.
type TenantSettings struct {
	TenantID          string              `json:"tenant_id"`
	ChatProvider      Provider            `json:"chat_provider,omitempty"`
	ChatModel         string              `json:"chat_model,omitempty"`
	EmbeddingProvider Provider            `json:"embedding_provider,omitempty"`
	EmbeddingModel    string              `json:"embedding_model,omitempty"`
	APIKeys           map[Provider]string `json:"-"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (s *TenantSettings) APIKey(p Provider) string {
	if s == nil || s.APIKeys == nil {
		return ""
	}
	return strings.TrimSpace(s.APIKeys[p])
}

type GenerateOptions struct {
	System      string
	MaxTokens   int
	Temperature float64
}

// Completion is the vendor-neutral shape of a text generation response.
type Completion struct {
	Provider         Provider `json:"provider"`
	Model            string   `json:"model"`
	Text             string   `json:"text"`
	FinishReason     string   `json:"finish_reason,omitempty"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
}
