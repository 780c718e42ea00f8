/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"

	"github.com/google/go-dap"
)

// Handler processes one inbound DAP message per call. Each call is one processing cycle
// of the Server: the handler replies through the Writer and may call RequestExit
// (or CancelExit) on it before returning.
//
// Returning an error ends the session.
type Handler interface {
	HandleMessage(ctx context.Context, msg dap.Message, w *Writer) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg dap.Message, w *Writer) error

func (f HandlerFunc) HandleMessage(ctx context.Context, msg dap.Message, w *Writer) error {
	return f(ctx, msg, w)
}
