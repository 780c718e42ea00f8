/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

/*
Package dap provides the outbound side of a Debug Adapter Protocol (DAP) server:
framing of events, responses, and reverse requests sent to the client, and the
exit signal used to end a session gracefully.

# Key Components

  - Sendable: one of an event, a response, or a reverse request (a request sent by the adapter to the client)
  - EncodeFrame: serializes a Sendable and wraps it in a Content-Length frame
  - Writer: owns the output stream, sends frames, and carries the ExitSignal
  - Server: the dispatch loop that reads inbound messages, calls a Handler, and honors the ExitSignal
  - EventQueue: lets background goroutines send events without touching the Writer

# Wire Format

Every message is written as one frame:

	Content-Length: <N>\r\n\r\n<json>\r\n

where N is the byte length of the JSON body. The body is the message's own JSON;
no field is added to tell events, responses, and requests apart, so receivers
rely on the message's "type" field.

# Exit Signal

A Handler calls RequestExit on the Writer to end the session once the current
message has been handled. CancelExit undoes a request made while handling the same
message; after the Server has observed the request, the session is already over.

# Usage

	writer := dap.NewWriter(stream, log)
	server := dap.NewServer(dap.ServerConfig{
		Input:   stream,
		Writer:  writer,
		Handler: handler,
		Logger:  log,
	})
	err := server.Serve(ctx)

# Errors

Failures are reported, never panicked on. Errors matching ErrSerialization mean the
message could not be converted to JSON; nothing was written. Errors matching ErrTransport
mean the output stream failed; the Writer refuses further writes and the session should end.
*/
package dap
