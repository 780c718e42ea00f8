/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
)

var (
	// ErrSerialization is returned when an outbound message cannot be converted to its wire form.
	// It indicates a malformed payload supplied by the caller and is never retried.
	ErrSerialization = errors.New("serialization failed")

	// ErrTransport is returned when a frame could not be written to the output stream.
	// The stream is in an undefined state afterwards and the session should be torn down.
	ErrTransport = errors.New("transport write failed")

	// ErrEmptySendable is returned when a Sendable that wraps no message is serialized.
	ErrEmptySendable = fmt.Errorf("%w: sendable does not wrap a message", ErrSerialization)

	// ErrWriterBroken is returned for every write attempted after a previous write failed.
	ErrWriterBroken = fmt.Errorf("%w: writer is broken by an earlier failure", ErrTransport)

	// ErrWriterClosed is returned when attempting to write using a closed writer.
	ErrWriterClosed = fmt.Errorf("%w: writer is closed", ErrTransport)

	// ErrQueueClosed is returned when posting an event to a closed event queue.
	ErrQueueClosed = errors.New("event queue is closed")
)

// IsSerializationError returns true if the error indicates that a message could not be serialized.
func IsSerializationError(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// IsTransportError returns true if the error indicates that the output stream failed.
// This includes broken and closed writers.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

func serializationError(err error) error {
	if errors.Is(err, ErrSerialization) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSerialization, err)
}

func transportError(err error) error {
	if errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// filterEndOfInput filters out io.EOF on the input stream, which means the client
// went away and the session ends normally. Other errors are returned unchanged.
func filterEndOfInput(err error, log logr.Logger) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) {
		log.V(1).Info("Input stream reached end of file")
		return nil
	}

	return err
}
