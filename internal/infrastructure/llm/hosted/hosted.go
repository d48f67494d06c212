// Package hosted adapts the OpenAI, Anthropic and Google model APIs to the
// embedding and generation ports through langchaingo.
package hosted

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

const defaultMaxTokens = 2048

type Config struct {
	Provider   domain.Provider
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Chat struct {
	provider domain.Provider
	model    string
	llm      llms.Model
}

func NewChat(ctx context.Context, cfg Config) (*Chat, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case domain.ProviderOpenAI:
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
		}
		model, err = openai.New(opts...)
	case domain.ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
		}
		model, err = anthropic.New(opts...)
	case domain.ProviderGoogle:
		opts := []googleai.Option{googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultModel(cfg.Model)}
		if cfg.HTTPClient != nil {
			opts = append(opts, googleai.WithHTTPClient(cfg.HTTPClient))
		}
		model, err = googleai.New(ctx, opts...)
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "hosted chat", fmt.Errorf("unsupported provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "init "+string(cfg.Provider)+" chat", err)
	}
	return newChatWithModel(cfg.Provider, cfg.Model, model), nil
}

func newChatWithModel(provider domain.Provider, name string, model llms.Model) *Chat {
	return &Chat{provider: provider, model: name, llm: model}
}

func (c *Chat) Model() domain.ModelRef {
	return domain.ModelRef{Provider: c.provider, Name: c.model}
}

func (c *Chat) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.Completion, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if strings.TrimSpace(opts.System) != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, opts.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	callOpts := []llms.CallOption{llms.WithModel(c.model), llms.WithMaxTokens(maxTokens)}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return domain.Completion{}, classify(string(c.provider)+" generate", err)
	}
	result, err := toProviderResult(c.provider, c.model, resp)
	if err != nil {
		return domain.Completion{}, err
	}
	return result.Normalize(), nil
}

type Embedder struct {
	provider domain.Provider
	model    string
	client   embeddingClient
}

func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	var (
		client embeddingClient
		err    error
	)
	switch cfg.Provider {
	case domain.ProviderOpenAI:
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithEmbeddingModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
		}
		client, err = openai.New(opts...)
	case domain.ProviderGoogle:
		opts := []googleai.Option{googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultEmbeddingModel(cfg.Model)}
		if cfg.HTTPClient != nil {
			opts = append(opts, googleai.WithHTTPClient(cfg.HTTPClient))
		}
		client, err = googleai.New(ctx, opts...)
	case domain.ProviderAnthropic:
		return nil, domain.WrapError(domain.ErrConfiguration, "hosted embedder", errors.New("anthropic offers no embedding models; choose openai, google or ollama"))
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "hosted embedder", fmt.Errorf("unsupported provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "init "+string(cfg.Provider)+" embedder", err)
	}
	return newEmbedderWithClient(cfg.Provider, cfg.Model, client), nil
}

func newEmbedderWithClient(provider domain.Provider, model string, client embeddingClient) *Embedder {
	return &Embedder{provider: provider, model: model, client: client}
}

func (e *Embedder) Model() domain.ModelRef {
	return domain.ModelRef{Provider: e.provider, Name: e.model}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, classify(string(e.provider)+" embed", err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.WrapError(domain.ErrTemporary, string(e.provider)+" embed",
			fmt.Errorf("got %d vectors for %d inputs", len(vectors), len(texts)))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Model) == "" {
		return domain.WrapError(domain.ErrConfiguration, "hosted provider", fmt.Errorf("no model configured for %s", cfg.Provider))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return domain.WrapError(domain.ErrConfiguration, "hosted provider", fmt.Errorf("no API key configured for %s", cfg.Provider))
	}
	return nil
}

var statusCodePattern = regexp.MustCompile(`status code:? (\d{3})`)

// classify maps vendor SDK errors onto domain kinds. The SDKs only expose
// HTTP status codes inside error strings.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}

	msg := strings.ToLower(err.Error())
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return domain.WrapError(domain.ErrConfiguration, operation, err)
		case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
	}
	switch {
	case strings.Contains(msg, "api key"), strings.Contains(msg, "api_key"), strings.Contains(msg, "authentication"):
		return domain.WrapError(domain.ErrConfiguration, operation, err)
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "overloaded"), strings.Contains(msg, "timeout"):
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
