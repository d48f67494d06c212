package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/cache/memory"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/resilience"
)

type guardedEmbedder struct {
	inner    ports.Embedder
	limiter  *rate.Limiter
	executor *resilience.Executor
	cache    *memory.Cache
	ttl      time.Duration
}

func (g *guardedEmbedder) Model() domain.ModelRef {
	return g.inner.Model()
}

// Embed serves cached vectors and sends only the misses upstream, in one call.
func (g *guardedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	model := g.inner.Model().String()
	for i, text := range texts {
		if g.cache != nil {
			if v, ok := g.cache.Get(memory.EmbeddingKey(model, text)); ok {
				if vec, ok := v.([]float32); ok {
					out[i] = vec
					continue
				}
			}
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vectors, err := g.call(ctx, batch)
	if err != nil {
		return nil, err
	}
	for j, i := range missing {
		out[i] = vectors[j]
		if g.cache != nil {
			g.cache.Set(memory.EmbeddingKey(model, texts[i]), vectors[j], g.ttl)
		}
	}
	return out, nil
}

func (g *guardedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	compute := func(ctx context.Context) ([]float32, error) {
		vectors, err := g.call(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vectors[0], nil
	}
	if g.cache == nil {
		return compute(ctx)
	}
	return memory.GetOrSet(ctx, g.cache, memory.EmbeddingKey(g.inner.Model().String(), text), g.ttl, compute)
}

func (g *guardedEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	op := "llm.embed." + string(g.inner.Model().Provider)
	vectors, err := resilience.Call(ctx, g.executor, op, func(ctx context.Context) ([][]float32, error) {
		if err := wait(ctx, g.limiter); err != nil {
			return nil, err
		}
		return g.inner.Embed(ctx, texts)
	}, nil)
	if err != nil {
		return nil, resilience.WrapOpenCircuit(op, err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.WrapError(domain.ErrTemporary, op, fmt.Errorf("got %d vectors for %d inputs", len(vectors), len(texts)))
	}
	return vectors, nil
}

type guardedGenerator struct {
	inner    ports.Generator
	limiter  *rate.Limiter
	executor *resilience.Executor
}

func (g *guardedGenerator) Model() domain.ModelRef {
	return g.inner.Model()
}

func (g *guardedGenerator) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.Completion, error) {
	op := "llm.generate." + string(g.inner.Model().Provider)
	out, err := resilience.Call(ctx, g.executor, op, func(ctx context.Context) (domain.Completion, error) {
		if err := wait(ctx, g.limiter); err != nil {
			return domain.Completion{}, err
		}
		return g.inner.Generate(ctx, prompt, opts)
	}, nil)
	if err != nil {
		return domain.Completion{}, resilience.WrapOpenCircuit(op, err)
	}
	return out, nil
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.WrapError(domain.ErrTemporary, "provider rate limit", err)
	}
	return nil
}
