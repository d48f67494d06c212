package hosted

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

// ProviderResult is one vendor's raw generation response. Every variant
// normalizes into domain.Completion before leaving this package.
type ProviderResult interface {
	Normalize() domain.Completion
}

type OpenAIResult struct {
	Model            string
	Content          string
	StopReason       string
	PromptTokens     int
	CompletionTokens int
}

func (r OpenAIResult) Normalize() domain.Completion {
	return domain.Completion{
		Provider:         domain.ProviderOpenAI,
		Model:            r.Model,
		Text:             strings.TrimSpace(r.Content),
		FinishReason:     r.StopReason,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}
}

type AnthropicResult struct {
	Model        string
	Content      string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

func (r AnthropicResult) Normalize() domain.Completion {
	return domain.Completion{
		Provider:         domain.ProviderAnthropic,
		Model:            r.Model,
		Text:             strings.TrimSpace(r.Content),
		FinishReason:     r.StopReason,
		PromptTokens:     r.InputTokens,
		CompletionTokens: r.OutputTokens,
	}
}

// GoogleResult joins every candidate part; Gemini may split one answer
// across several choices.
type GoogleResult struct {
	Model        string
	Parts        []string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

func (r GoogleResult) Normalize() domain.Completion {
	return domain.Completion{
		Provider:         domain.ProviderGoogle,
		Model:            r.Model,
		Text:             strings.TrimSpace(strings.Join(r.Parts, "")),
		FinishReason:     strings.ToLower(r.StopReason),
		PromptTokens:     r.InputTokens,
		CompletionTokens: r.OutputTokens,
	}
}

func toProviderResult(provider domain.Provider, model string, resp *llms.ContentResponse) (ProviderResult, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, domain.WrapError(domain.ErrTemporary, string(provider)+" generate", fmt.Errorf("empty response"))
	}
	first := resp.Choices[0]
	info := first.GenerationInfo

	switch provider {
	case domain.ProviderOpenAI:
		return OpenAIResult{
			Model:            model,
			Content:          first.Content,
			StopReason:       first.StopReason,
			PromptTokens:     intFrom(info, "PromptTokens"),
			CompletionTokens: intFrom(info, "CompletionTokens"),
		}, nil
	case domain.ProviderAnthropic:
		return AnthropicResult{
			Model:        model,
			Content:      first.Content,
			StopReason:   first.StopReason,
			InputTokens:  intFrom(info, "InputTokens"),
			OutputTokens: intFrom(info, "OutputTokens"),
		}, nil
	case domain.ProviderGoogle:
		parts := make([]string, 0, len(resp.Choices))
		for _, c := range resp.Choices {
			if c != nil {
				parts = append(parts, c.Content)
			}
		}
		return GoogleResult{
			Model:        model,
			Parts:        parts,
			StopReason:   first.StopReason,
			InputTokens:  intFrom(info, "input_tokens"),
			OutputTokens: intFrom(info, "output_tokens"),
		}, nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "normalize completion", fmt.Errorf("provider %q is not hosted", provider))
	}
}

func intFrom(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
