/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
)

// Writer sends events, responses, and reverse requests to the client as frames
// on a single output stream, and carries the session's ExitSignal.
//
// A Writer is meant to be owned by one dispatch loop. Writes are still serialized
// internally, so frames are never interleaved and appear in the order Write was entered.
// Background producers should post events to an EventQueue instead of calling the Writer.
type Writer struct {
	ExitSignal

	out io.Writer
	log logr.Logger

	// writeMu protects the encode-and-write path and the state below
	writeMu sync.Mutex

	// broken holds the first transport failure; once set, nothing else is written
	broken error
	closed bool
}

// NewWriter creates a Writer that owns the given output stream.
// No other code may write to the stream while the Writer is in use.
func NewWriter(out io.Writer, log logr.Logger) *Writer {
	return &Writer{
		out: out,
		log: log,
	}
}

// SendEvent sends an event to the client.
func (w *Writer) SendEvent(event dap.EventMessage) error {
	return w.Write(NewEventSendable(event))
}

// SendResponse sends a response to the client.
func (w *Writer) SendResponse(response dap.ResponseMessage) error {
	return w.Write(NewResponseSendable(response))
}

// SendReverseRequest sends a request issued by the adapter to the client.
func (w *Writer) SendReverseRequest(request dap.RequestMessage) error {
	return w.Write(NewReverseRequestSendable(request))
}

// Write encodes the Sendable as one frame and writes it to the output stream.
//
// If the message cannot be serialized, an error matching ErrSerialization is returned
// and the stream is not touched. If the stream write fails, an error matching ErrTransport
// is returned and the Writer refuses all further writes, since the receiver can no longer
// find frame boundaries.
func (w *Writer) Write(s Sendable) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if w.broken != nil {
		return fmt.Errorf("%w: %w", ErrWriterBroken, w.broken)
	}

	body, frame, encodeErr := EncodeFrame(s)
	if encodeErr != nil {
		w.log.Error(encodeErr, "Could not encode outbound DAP message", "Kind", s.Kind().String(), "Seq", s.Seq())
		return encodeErr
	}

	n, writeErr := w.out.Write(frame)
	if writeErr == nil && n != len(frame) {
		writeErr = io.ErrShortWrite
	}
	if writeErr != nil {
		w.broken = writeErr
		err := transportError(fmt.Errorf("failed to write DAP %s frame (%d of %d bytes written): %w", s.Kind(), n, len(frame), writeErr))
		w.log.Error(err, "Output stream failed, no further messages will be sent", "Kind", s.Kind().String(), "Seq", s.Seq())
		return err
	}

	if flusher, ok := w.out.(interface{ Flush() error }); ok {
		if flushErr := flusher.Flush(); flushErr != nil {
			w.broken = flushErr
			err := transportError(fmt.Errorf("failed to flush DAP %s frame: %w", s.Kind(), flushErr))
			w.log.Error(err, "Output stream failed, no further messages will be sent", "Kind", s.Kind().String(), "Seq", s.Seq())
			return err
		}
	}

	w.log.V(1).Info("Sent DAP message", "Kind", s.Kind().String(), "Seq", s.Seq(), "ContentLength", len(body))
	return nil
}

// Close marks the Writer as closed and closes the output stream if it is an io.Closer.
// Closing an already closed Writer is a no-op.
func (w *Writer) Close() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if closer, ok := w.out.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil {
			return fmt.Errorf("failed to close DAP output stream: %w", closeErr)
		}
	}

	return nil
}
