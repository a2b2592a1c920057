package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/application/service"
)

// ImportWorker consumes queued roster rows and registers them. Each row is an
// independent unit: a failed registration is recorded on the job and the loop
// moves on to the next payload.
type ImportWorker struct {
	queue       port.ImportQueue
	imports     service.ImportService
	concurrency int
	logger      *zap.Logger

	wg sync.WaitGroup
}

// NewImportWorker creates a new import worker with the given consumer count
func NewImportWorker(queue port.ImportQueue, imports service.ImportService, concurrency int, logger *zap.Logger) *ImportWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImportWorker{
		queue:       queue,
		imports:     imports,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Name returns the worker name
func (w *ImportWorker) Name() string {
	return "import_worker"
}

// Start launches the consumer goroutines. They run until ctx is cancelled.
func (w *ImportWorker) Start(ctx context.Context) error {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(consumer int) {
			defer w.wg.Done()
			w.consume(ctx, consumer)
		}(i)
	}
	w.logger.Info("Import worker started", zap.Int("concurrency", w.concurrency))
	return nil
}

// Stop waits for the consumer goroutines to exit. The manager cancels the
// shared context before calling Stop, which unblocks the queue pops.
func (w *ImportWorker) Stop() error {
	w.wg.Wait()
	return nil
}

func (w *ImportWorker) consume(ctx context.Context, consumer int) {
	for {
		payload, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("Failed to pop import row",
				zap.Int("consumer", consumer),
				zap.Error(err))
			continue
		}

		if err := w.imports.ProcessRow(ctx, payload); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to process import row",
				zap.Int("consumer", consumer),
				zap.Error(err))
		}
	}
}
