package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSinkWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	sink := NewSink(path)
	sink.Start()

	if err := sink.Send([]string{`{"id":1}`, `{"id":2}`}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := sink.Send([]string{`{"id":3}`}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := "{\"id\":1}\n{\"id\":2}\n{\"id\":3}\n"
	if string(data) != want {
		t.Errorf("output:\n got %q\nwant %q", string(data), want)
	}
	if sink.Records() != 3 {
		t.Errorf("Records = %d, want 3", sink.Records())
	}
}

func TestSinkEmptyBatchIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	sink := NewSink(path)
	sink.Start()

	if err := sink.Send(nil); err != nil {
		t.Fatalf("Send(nil) failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if sink.Records() != 0 {
		t.Errorf("Records = %d, want 0", sink.Records())
	}
}

func TestSinkCreateFailureUnblocksProducers(t *testing.T) {
	// A directory that does not exist makes the lazy open fail
	sink := NewSink(filepath.Join(t.TempDir(), "missing", "out.json"))
	sink.Start()

	// The consumer fails on startup; sends must eventually return an
	// error instead of blocking forever, even past the queue depth.
	var sendErr error
	for i := 0; i < sinkQueueDepth+10; i++ {
		if err := sink.Send([]string{"x"}); err != nil {
			sendErr = err
			break
		}
	}

	if err := sink.Close(); err == nil {
		t.Error("expected Close to report the create failure")
	}
	if sendErr != nil && !strings.Contains(sendErr.Error(), "output sink closed") {
		t.Errorf("unexpected send error: %v", sendErr)
	}
}

// failingWriter rejects every write
type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestSinkWriteFailureMidStream(t *testing.T) {
	sink := NewSinkWriter(failingWriter{})
	sink.Start()

	// Lines big enough that the buffered writer hits the destination
	// while batches are still streaming in, not only at the final flush
	line := strings.Repeat("x", 64*1024)
	batch := []string{line, line, line, line}

	// Whether Send reports the failure or the drain absorbs the batches,
	// this loop must complete without blocking
	var sendErr error
	for i := 0; i < sinkQueueDepth+50; i++ {
		if err := sink.Send(batch); err != nil {
			sendErr = err
			break
		}
	}
	if sendErr != nil && !errors.Is(sendErr, ErrSinkClosed) {
		t.Errorf("send error does not name the closed sink: %v", sendErr)
	}

	err := sink.Close()
	if err == nil {
		t.Fatal("expected write error from Close")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSinkBackpressureCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	sink := NewSink(path)
	sink.Start()

	batch := make([]string, 100)
	for i := range batch {
		batch[i] = `{"k":"v"}`
	}
	for i := 0; i < 250; i++ {
		if err := sink.Send(batch); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	if sink.Records() != 25000 {
		t.Errorf("Records = %d, want 25000", sink.Records())
	}
}
