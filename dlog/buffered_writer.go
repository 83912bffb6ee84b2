package dlog

// BufferedWriter wraps a console so writes are buffered, yet flushed in a
// timely, deterministic fashion: either after n buffered bytes or after t,
// whichever comes first.

import (
	"bufio"
	"io"
	"sync"
	"time"
)

type BufferedWriter struct {
	mu               sync.Mutex
	wr               io.Writer
	bufferSize       int
	maxFlushInterval time.Duration
	baseWr           io.Writer
	closed           bool

	stop chan struct{}
	done chan struct{}
}

// NewBufferedWriter returns a writer over base.  A zero bufferSize disables
// buffering and every write goes straight to base.
func NewBufferedWriter(
	base io.Writer,
	bufferSize int,
	maxFlushInterval time.Duration) *BufferedWriter {

	return &BufferedWriter{
		bufferSize:       bufferSize,
		maxFlushInterval: maxFlushInterval,
		baseWr:           base,
	}
}

func (bw *BufferedWriter) Flush() error {
	type flusher interface {
		Flush() error
	}
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if fwr, ok := bw.wr.(flusher); ok {
		return fwr.Flush()
	}
	return nil
}

func (bw *BufferedWriter) Sync() error {
	type syncer interface {
		Sync() error
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if swr, ok := bw.baseWr.(syncer); ok {
		return swr.Sync()
	}
	return nil
}

// Close stops the flush daemon and flushes whatever is still buffered.  The
// base writer is not closed; later writes go straight to it.
func (bw *BufferedWriter) Close() error {
	bw.mu.Lock()
	stop, done := bw.stop, bw.done
	bw.stop = nil
	bw.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.closed = true
	if fwr, ok := bw.wr.(*bufio.Writer); ok {
		bw.wr = nil
		return fwr.Flush()
	}
	return nil
}

func (bw *BufferedWriter) flushDaemon(stop chan struct{}, done chan struct{}) {
	defer close(done)

	// Try to guarantee that we flush at least every maxFlushInterval.
	// This can result in a single extra queued flush if the underlying
	// writer takes longer than maxFlushInterval.
	ticker := time.NewTicker(bw.maxFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = bw.Flush() // Ignore error.
		case <-stop:
			return
		}
	}
}

func (bw *BufferedWriter) Write(b []byte) (n int, err error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.wr == nil {
		if bw.closed || bw.bufferSize <= 0 {
			return bw.baseWr.Write(b)
		}
		bw.wr = bufio.NewWriterSize(bw.baseWr, bw.bufferSize)
		if bw.maxFlushInterval > 0 {
			bw.stop = make(chan struct{})
			bw.done = make(chan struct{})
			go bw.flushDaemon(bw.stop, bw.done)
		}
	}
	return bw.wr.Write(b)
}
