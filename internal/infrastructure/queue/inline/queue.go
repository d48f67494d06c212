// Package inline processes ingested documents in the publishing process,
// for single-node deployments without a message broker.
package inline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Handler func(ctx context.Context, documentID string) error

type Queue struct {
	handler Handler
	async   bool
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

type Options struct {
	// Async returns from Publish immediately and processes in the background.
	Async   bool
	Timeout time.Duration
	Logger  *slog.Logger
}

func New(handler Handler, opts Options) *Queue {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{handler: handler, async: opts.Async, timeout: opts.Timeout, logger: logger}
}

// PublishDocumentIngested runs the handler. Processing failures are logged
// and not returned: the document records its own error status.
func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	run := func(ctx context.Context) {
		if q.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, q.timeout)
			defer cancel()
		}
		if err := q.handler(ctx, documentID); err != nil {
			q.logger.Error("inline processing failed", "document_id", documentID, "error", err)
		}
	}

	if !q.async {
		run(ctx)
		return nil
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		run(context.WithoutCancel(ctx))
	}()
	return nil
}

// SubscribeDocumentIngested has nothing to consume; it blocks until ctx is
// done and then waits for background work.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, _ func(context.Context, string) error) error {
	<-ctx.Done()
	q.Wait()
	return nil
}

func (q *Queue) Wait() {
	q.wg.Wait()
}
