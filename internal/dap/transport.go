// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
)

// Stream is the byte stream a single DAP session runs over.
// Inbound messages are read from it by the Server and outbound frames are written to it by the Writer.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// stdioStream implements Stream over separate input and output streams.
type stdioStream struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser

	closeOnce sync.Once
	closeErr  error
}

// NewStdioStream creates a Stream backed by stdin and stdout streams.
// The caller is responsible for ensuring that stdin supports reading and stdout supports writing.
func NewStdioStream(stdin io.ReadCloser, stdout io.WriteCloser) Stream {
	return &stdioStream{
		stdin:  stdin,
		stdout: stdout,
	}
}

// OpenStdio returns a Stream over the process's standard input and output.
// Nothing else in the process may write to standard output while the Stream is in use.
func OpenStdio() Stream {
	return NewStdioStream(os.Stdin, os.Stdout)
}

func (s *stdioStream) Read(p []byte) (int, error) {
	return s.stdin.Read(p)
}

func (s *stdioStream) Write(p []byte) (int, error) {
	return s.stdout.Write(p)
}

func (s *stdioStream) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if closeErr := s.stdin.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("failed to close stdin: %w", closeErr))
		}
		if closeErr := s.stdout.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("failed to close stdout: %w", closeErr))
		}
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

// ListenTCP starts listening for a DAP client on the specified TCP address.
func ListenTCP(ctx context.Context, address string) (net.Listener, error) {
	var lc net.ListenConfig
	listener, listenErr := lc.Listen(ctx, "tcp", address)
	if listenErr != nil {
		return nil, fmt.Errorf("failed to listen on TCP %s: %w", address, listenErr)
	}

	return listener, nil
}

// AcceptStream waits for a single client connection and returns it as a Stream.
// The listener is closed before AcceptStream returns, since a server runs exactly one session.
func AcceptStream(ctx context.Context, listener net.Listener) (Stream, error) {
	stopOnCancel := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})

	conn, acceptErr := listener.Accept()
	stopOnCancel()
	_ = listener.Close()

	if acceptErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to accept DAP client connection: %w", acceptErr)
	}

	return conn, nil
}
