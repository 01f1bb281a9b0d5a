package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/wegman-software/pbf2json-go/internal/logger"
	"github.com/wegman-software/pbf2json-go/internal/metrics"
)

const (
	// sinkQueueDepth bounds the number of batches queued for the output
	// writer. Producers block when the queue is full, so together with the
	// executor's batch size this is the primary knob capping pipeline
	// memory: peak queued output ≈ sinkQueueDepth × batch size × average
	// record length, independent of dataset size.
	sinkQueueDepth = 1000

	// progressEvery controls how often the sink logs cumulative counts
	// and process memory
	progressEvery = 100

	// memoryWarnBytes is the soft threshold above which the sink warns
	// about process memory
	memoryWarnBytes = 8 << 30
)

// ErrSinkClosed is returned by Send after the sink has stopped accepting
// batches, typically because the output destination failed.
var ErrSinkClosed = errors.New("output sink closed")

// Sink is the single consumer that owns the output destination. Batches of
// serialized records arrive through a bounded queue; each record is written
// as one line. The destination is created lazily when the consumer starts:
// a file when a path is configured, stdout otherwise.
type Sink struct {
	path    string
	out     io.Writer
	batches chan []string
	done    chan struct{}
	wg      sync.WaitGroup

	mu  sync.Mutex
	err error

	records int64
}

// NewSink creates a sink writing to the given path, or stdout when the
// path is empty
func NewSink(path string) *Sink {
	return &Sink{
		path:    path,
		batches: make(chan []string, sinkQueueDepth),
		done:    make(chan struct{}),
	}
}

// NewSinkWriter creates a sink streaming to an existing writer. The
// writer is not closed when the sink finishes.
func NewSinkWriter(w io.Writer) *Sink {
	return &Sink{
		out:     w,
		batches: make(chan []string, sinkQueueDepth),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.run()
}

// Send queues one batch of output lines, blocking while the queue is full.
// It fails fast once the sink has stopped, so producers never block forever
// against a dead consumer.
func (s *Sink) Send(batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	select {
	case s.batches <- batch:
		return nil
	case <-s.done:
		if err := s.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrSinkClosed, err)
		}
		return ErrSinkClosed
	}
}

// Close signals end-of-stream, waits for the consumer to flush, and
// returns any write error
func (s *Sink) Close() error {
	close(s.batches)
	s.wg.Wait()
	return s.Err()
}

// Err returns the sink's terminal error, if any
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Records returns the cumulative record count
func (s *Sink) Records() int64 {
	return s.records
}

// fail records the terminal error and unblocks producers
func (s *Sink) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
		close(s.done)
	}
	s.mu.Unlock()
}

func (s *Sink) run() {
	defer s.wg.Done()
	log := logger.Get()

	out := s.out
	if out == nil {
		if s.path == "" {
			out = os.Stdout
		} else {
			f, err := os.Create(s.path)
			if err != nil {
				s.fail(fmt.Errorf("failed to create output file %s: %w", s.path, err))
				s.drain()
				return
			}
			out = f
			defer f.Close()
		}
	}

	w := bufio.NewWriterSize(out, 1<<20)
	batchCount := 0

	for batch := range s.batches {
		for _, line := range batch {
			if _, err := w.WriteString(line); err != nil {
				s.fail(fmt.Errorf("output write failed: %w", err))
				s.drain()
				return
			}
			if err := w.WriteByte('\n'); err != nil {
				s.fail(fmt.Errorf("output write failed: %w", err))
				s.drain()
				return
			}
			s.records++
		}
		batchCount++

		if batchCount%progressEvery == 0 {
			rss := metrics.ProcessRSS()
			log.Debug("Streaming progress",
				zap.Int64("records", s.records),
				zap.Int("batches", batchCount),
				zap.String("rss", humanize.IBytes(rss)))
			if rss > memoryWarnBytes {
				log.Warn("Process memory above soft limit",
					zap.String("rss", humanize.IBytes(rss)),
					zap.String("limit", humanize.IBytes(uint64(memoryWarnBytes))))
			}
		}
	}

	if err := w.Flush(); err != nil {
		s.fail(fmt.Errorf("output flush failed: %w", err))
		return
	}

	log.Info("Streaming output complete", zap.Int64("records", s.records))
}

// drain discards queued batches after a failure so producers blocked on
// the queue make progress and observe the closed sink
func (s *Sink) drain() {
	for range s.batches {
	}
}
