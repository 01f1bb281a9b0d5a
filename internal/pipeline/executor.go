package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/pbf2json-go/internal/element"
	"github.com/wegman-software/pbf2json-go/internal/logger"
)

// transformBatchSize is the number of output lines a worker accumulates
// before handing a batch to the sink
const transformBatchSize = 10000

// TransformFunc turns one element into its serialized output line. The
// second return is false when the element produces no output, either
// because the filter rejects it or because its geometry cannot be
// resolved.
type TransformFunc func(e element.Element) (string, bool)

// Executor fans elements out to a fixed pool of transform workers that
// feed a shared sink. Workers batch their output so sink contention stays
// proportional to batch count, not record count.
type Executor struct {
	workers int
	sink    *Sink
}

// NewExecutor creates an executor with the given worker count
func NewExecutor(workers int, sink *Sink) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{workers: workers, sink: sink}
}

// Run consumes elements from the channel until it closes, applying fn on
// every element across the worker pool. The first worker error cancels the
// rest; a panicking transform is converted into an error rather than
// crashing the process.
func (ex *Executor) Run(ctx context.Context, elements <-chan element.Element, fn TransformFunc) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < ex.workers; i++ {
		worker := i
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Get().Error("Transform worker panicked",
						zap.Int("worker", worker),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())))
					err = fmt.Errorf("transform worker %d panicked: %v", worker, r)
				}
			}()
			return ex.work(ctx, elements, fn)
		})
	}

	return g.Wait()
}

func (ex *Executor) work(ctx context.Context, elements <-chan element.Element, fn TransformFunc) error {
	batch := make([]string, 0, transformBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ex.sink.Send(batch); err != nil {
			return err
		}
		batch = make([]string, 0, transformBatchSize)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-elements:
			if !ok {
				return flush()
			}
			line, keep := fn(e)
			if !keep {
				continue
			}
			batch = append(batch, line)
			if len(batch) >= transformBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}
