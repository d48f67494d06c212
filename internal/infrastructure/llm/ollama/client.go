package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

const DefaultBaseURL = "http://localhost:11434"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func (e *Embedder) Model() domain.ModelRef {
	return domain.ModelRef{Provider: domain.ProviderOllama, Name: e.model}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.model,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrTemporary, "ollama embed",
			errors.New("embedding count does not match input count"))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

func (g *Generator) Model() domain.ModelRef {
	return domain.ModelRef{Provider: domain.ProviderOllama, Name: g.model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the /api/chat payload with stream disabled.
type ChatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

func (r ChatResponse) Normalize() domain.Completion {
	return domain.Completion{
		Provider:         domain.ProviderOllama,
		Model:            r.Model,
		Text:             strings.TrimSpace(r.Message.Content),
		FinishReason:     r.DoneReason,
		PromptTokens:     r.PromptEvalCount,
		CompletionTokens: r.EvalCount,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(opts.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	options := map[string]any{}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	request := map[string]any{
		"model":    g.model,
		"messages": messages,
		"stream":   false,
		"options":  options,
	}

	var response ChatResponse
	if err := g.client.postJSON(ctx, "/api/chat", request, &response, "chat"); err != nil {
		return domain.Completion{}, err
	}
	completion := response.Normalize()
	if completion.Model == "" {
		completion.Model = g.model
	}
	return completion, nil
}
