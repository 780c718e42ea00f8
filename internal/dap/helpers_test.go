/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/dapwriter/pkg/testutil"
)

// splitFrames returns the bodies of the frames in data.
// It fails the test if the data is not an exact sequence of well-formed frames.
func splitFrames(t *testing.T, data []byte) [][]byte {
	t.Helper()
	bodies, splitErr := testutil.SplitFrames(data)
	require.NoError(t, splitErr)
	return bodies
}

// decodeBody decodes a frame body with go-dap, the way a client would.
func decodeBody(t *testing.T, body []byte) dap.Message {
	t.Helper()
	msg, decodeErr := dap.DecodeProtocolMessage(body)
	require.NoError(t, decodeErr)
	return msg
}

// frameFor encodes a DAP message with the standard framing, as a client would send it.
func frameFor(t *testing.T, msg dap.Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, dap.WriteProtocolMessage(&buf, msg))
	return buf.Bytes()
}

// minimalResponse serializes to just its sequence number and type.
type minimalResponse struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`
}

func (r *minimalResponse) GetSeq() int { return r.Seq }

func (r *minimalResponse) GetResponse() *dap.Response {
	return &dap.Response{ProtocolMessage: dap.ProtocolMessage{Seq: r.Seq, Type: r.Type}}
}

// unserializableEvent carries a value encoding/json cannot represent.
type unserializableEvent struct {
	dap.Event
	Body chan int `json:"body"`
}

// rawBodyEvent carries a body that claims to be JSON but is not.
type rawBodyEvent struct {
	dap.Event
	Body json.RawMessage `json:"body"`
}

func newOutputEvent(seq int, output string) *dap.OutputEvent {
	return &dap.OutputEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           "output",
		},
		Body: dap.OutputEventBody{Category: "stdout", Output: output},
	}
}

func newThreadsResponse(seq int, requestSeq int) *dap.ThreadsResponse {
	return &dap.ThreadsResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "response"},
			Command:         "threads",
			RequestSeq:      requestSeq,
			Success:         true,
		},
		Body: dap.ThreadsResponseBody{Threads: []dap.Thread{{Id: 1, Name: "main"}}},
	}
}

func newRunInTerminalRequest(seq int) *dap.RunInTerminalRequest {
	return &dap.RunInTerminalRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "request"},
			Command:         "runInTerminal",
		},
		Arguments: dap.RunInTerminalRequestArguments{
			Kind:  "integrated",
			Title: "app",
			Args:  []string{"./app", "--flag"},
		},
	}
}
