/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
)

// ServerConfig contains the configuration for a Server.
type ServerConfig struct {
	// SessionID identifies the session in log messages.
	SessionID string

	// Input is the stream inbound DAP messages are read from.
	Input io.Reader

	// Writer sends outbound messages. The Server becomes its only user.
	Writer *Writer

	// Handler processes inbound messages.
	Handler Handler

	// Events is an optional queue of events posted by background producers.
	// Queued events are sent between processing cycles.
	Events *EventQueue

	// Logger for server operations.
	Logger logr.Logger
}

// Server runs the dispatch loop of a DAP session: it reads one inbound message at a time,
// hands it to the Handler, and consults the Writer's ExitSignal after every cycle.
type Server struct {
	config ServerConfig
	log    logr.Logger
}

type inboundMessage struct {
	msg dap.Message
	err error
}

// NewServer creates a new Server with the given configuration.
func NewServer(config ServerConfig) *Server {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	if config.SessionID != "" {
		log = log.WithValues("SessionID", config.SessionID)
	}

	return &Server{
		config: config,
		log:    log,
	}
}

// Writer returns the Writer used by the server.
func (s *Server) Writer() *Writer {
	return s.config.Writer
}

// Events returns the event queue used by the server, or nil if there is none.
func (s *Server) Events() *EventQueue {
	return s.config.Events
}

// Serve runs the dispatch loop until one of the following happens:
//   - the Handler requests an exit and does not cancel it within the same cycle (returns nil),
//   - the input stream ends (returns nil),
//   - the Handler returns an error, reading fails, or the Writer fails (returns the error),
//   - the context is cancelled (returns the context error).
func (s *Server) Serve(ctx context.Context) error {
	if s.config.Input == nil || s.config.Writer == nil || s.config.Handler == nil {
		return fmt.Errorf("DAP server requires an input stream, a writer, and a handler")
	}

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	inbound := make(chan inboundMessage)
	go s.readLoop(readCtx, inbound)

	var events <-chan dap.EventMessage
	if s.config.Events != nil {
		events = s.config.Events.Out()
	}

	s.log.V(1).Info("DAP session started")

	for {
		select {
		case <-ctx.Done():
			s.log.V(1).Info("DAP session context cancelled")
			return ctx.Err()

		case event, isOpen := <-events:
			if !isOpen {
				events = nil
				continue
			}

			if sendErr := s.config.Writer.SendEvent(event); sendErr != nil {
				if IsTransportError(sendErr) {
					return sendErr
				}
				// A malformed event from a background producer does not end the session.
				s.log.Error(sendErr, "Dropping queued event", "Seq", event.GetSeq())
			}

		case in := <-inbound:
			if in.err != nil {
				return filterEndOfInput(in.err, s.log)
			}

			if handleErr := s.config.Handler.HandleMessage(ctx, in.msg, s.config.Writer); handleErr != nil {
				return fmt.Errorf("failed to handle DAP message (seq %d): %w", in.msg.GetSeq(), handleErr)
			}

			if s.config.Writer.ExitRequested() {
				s.log.Info("Exit requested, DAP session is ending")
				return nil
			}
		}
	}
}

// readLoop hands inbound messages to the dispatch loop one at a time.
// It does not read ahead: the next message is read only after the previous one was taken.
func (s *Server) readLoop(ctx context.Context, inbound chan<- inboundMessage) {
	reader := bufio.NewReader(s.config.Input)

	for {
		msg, readErr := dap.ReadProtocolMessage(reader)
		if readErr != nil {
			var fieldErr *dap.DecodeProtocolMessageFieldError
			if errors.As(readErr, &fieldErr) {
				// The frame was consumed, so the stream is still in sync.
				s.log.Info("Skipping DAP message that could not be decoded", "Error", readErr.Error())
				continue
			}

			select {
			case inbound <- inboundMessage{err: fmt.Errorf("failed to read DAP message: %w", readErr)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case inbound <- inboundMessage{msg: msg}:
		case <-ctx.Done():
			return
		}
	}
}
