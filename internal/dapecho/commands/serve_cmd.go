/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	dap_writer "github.com/microsoft/dapwriter/internal/dap"
	"github.com/microsoft/dapwriter/internal/dapecho"
)

type serveConfig struct {
	// TCP address to accept a single client connection on. Empty means standard input/output.
	Listen string

	SessionID string

	EventQueueCapacity int
}

func (c *serveConfig) validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session ID must not be empty")
	}
	if c.EventQueueCapacity < 0 {
		return fmt.Errorf("event queue capacity must be zero or greater, got %d", c.EventQueueCapacity)
	}
	return nil
}

func NewServeCommand(log logr.Logger) *cobra.Command {
	config := &serveConfig{}

	serveCmd := &cobra.Command{
		Use:   "serve [--listen address] [--session-id id] [--event-queue-capacity n]",
		Short: "Runs one debug session",
		Long: `Runs one debug session.

		By default the session uses standard input and output; standard output carries only DAP messages.
		If --listen is set, the adapter waits for a single client connection on that TCP address and prints the address it listens on.
		`,
		RunE: runServe(log, config),
		Args: cobra.NoArgs,
	}

	serveCmd.Flags().StringVar(&config.Listen, "listen", "", "TCP address (host:port) to accept the client connection on. If not set, standard input/output is used.")
	serveCmd.Flags().StringVar(&config.SessionID, "session-id", uuid.NewString(), "Identifier of the debug session, used in log messages. A random identifier is used if not specified.")
	serveCmd.Flags().IntVar(&config.EventQueueCapacity, "event-queue-capacity", 0, "Initial capacity of the queue for events produced in the background. If zero, a default capacity is used.")

	return serveCmd
}

func runServe(log logr.Logger, config *serveConfig) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		log := log.WithName("serve").WithValues("SessionID", config.SessionID)

		if configErr := config.validate(); configErr != nil {
			log.Error(configErr, "Invocation parameters are invalid")
			return configErr
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		stream, streamErr := openStream(ctx, cmd, config, log)
		if streamErr != nil {
			return streamErr
		}

		sessionCtx, cancelSession := context.WithCancel(ctx)
		defer cancelSession()

		events := dap_writer.NewEventQueue(sessionCtx, config.EventQueueCapacity)
		defer events.Close()

		writer := dap_writer.NewWriter(stream, log)
		defer func() { _ = writer.Close() }()

		server := dap_writer.NewServer(dap_writer.ServerConfig{
			SessionID: config.SessionID,
			Input:     stream,
			Writer:    writer,
			Handler:   dapecho.NewAdapter(dapecho.Config{Events: events, Logger: log}),
			Events:    events,
			Logger:    log,
		})

		log.V(1).Info("Debug session started")
		serveErr := server.Serve(sessionCtx)
		switch {
		case serveErr == nil:
			log.V(1).Info("Debug session ended", "ExitState", writer.ExitState().String())
			return nil
		case errors.Is(serveErr, context.Canceled) && ctx.Err() != nil:
			log.Info("Debug session cancelled, shutting down...")
			return nil
		default:
			log.Error(serveErr, "Debug session failed")
			return serveErr
		}
	}
}

func openStream(ctx context.Context, cmd *cobra.Command, config *serveConfig, log logr.Logger) (dap_writer.Stream, error) {
	if config.Listen == "" {
		return dap_writer.OpenStdio(), nil
	}

	listener, listenErr := dap_writer.ListenTCP(ctx, config.Listen)
	if listenErr != nil {
		log.Error(listenErr, "Failed to create TCP listener", "Address", config.Listen)
		return nil, listenErr
	}

	address := listener.Addr().String()
	log.V(1).Info("Waiting for client connection", "Address", address)
	fmt.Fprintln(cmd.OutOrStdout(), address)

	stream, acceptErr := dap_writer.AcceptStream(ctx, listener)
	if acceptErr != nil {
		log.Error(acceptErr, "Failed to accept client connection", "Address", address)
		return nil, acceptErr
	}

	return stream, nil
}
