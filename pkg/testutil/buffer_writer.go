package testutil

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// BufferWriter is an io.WriteCloser that records every write.
// Writes fail with io.ErrClosedPipe after Close. All methods are goroutine-safe.
type BufferWriter struct {
	lock   sync.Mutex
	data   []byte
	writes [][]byte
	closed bool
}

func NewBufferWriter() *BufferWriter {
	return &BufferWriter{}
}

func (bw *BufferWriter) Write(p []byte) (int, error) {
	bw.lock.Lock()
	defer bw.lock.Unlock()

	if bw.closed {
		return 0, io.ErrClosedPipe
	}

	bw.writes = append(bw.writes, bytes.Clone(p))
	bw.data = append(bw.data, p...)
	return len(p), nil
}

// Bytes returns a copy of everything written so far.
func (bw *BufferWriter) Bytes() []byte {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bytes.Clone(bw.data)
}

// Writes returns a copy of the individual Write calls made so far.
func (bw *BufferWriter) Writes() [][]byte {
	bw.lock.Lock()
	defer bw.lock.Unlock()

	retval := make([][]byte, len(bw.writes))
	for i, w := range bw.writes {
		retval[i] = bytes.Clone(w)
	}
	return retval
}

func (bw *BufferWriter) Close() error {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.closed = true
	return nil
}

func (bw *BufferWriter) Closed() bool {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bw.closed
}

var _ io.WriteCloser = (*BufferWriter)(nil)

var ErrInjectedWriteFailure = errors.New("injected write failure")

// FailingWriter accepts up to Limit bytes and then fails, writing only the part that fits.
// It simulates a transport that breaks in the middle of a message.
type FailingWriter struct {
	BufferWriter
	Limit int
	Err   error
}

func NewFailingWriter(limit int) *FailingWriter {
	return &FailingWriter{Limit: limit, Err: ErrInjectedWriteFailure}
}

func (fw *FailingWriter) Write(p []byte) (int, error) {
	written := len(fw.BufferWriter.Bytes())
	if written+len(p) <= fw.Limit {
		return fw.BufferWriter.Write(p)
	}

	fits := max(fw.Limit-written, 0)
	n, _ := fw.BufferWriter.Write(p[:fits])
	return n, fw.Err
}

var _ io.Writer = (*FailingWriter)(nil)
