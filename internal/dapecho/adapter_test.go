// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dapecho

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"

	dap_writer "github.com/microsoft/dapwriter/internal/dap"
	"github.com/microsoft/dapwriter/pkg/testutil"
)

// clientScript builds the stream of framed messages a client would send.
type clientScript struct {
	t   *testing.T
	seq int
	buf bytes.Buffer
}

func newClientScript(t *testing.T) *clientScript {
	return &clientScript{t: t}
}

func (c *clientScript) nextRequest(command string) dap.Request {
	c.seq++
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: c.seq, Type: "request"},
		Command:         command,
	}
}

func (c *clientScript) send(msg dap.Message) *clientScript {
	require.NoError(c.t, dap.WriteProtocolMessage(&c.buf, msg))
	return c
}

func (c *clientScript) initialize(supportsTerminal bool) *clientScript {
	return c.send(&dap.InitializeRequest{
		Request: c.nextRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			AdapterID:                    "dapecho",
			SupportsRunInTerminalRequest: supportsTerminal,
		},
	})
}

func (c *clientScript) launch(args launchArguments) *clientScript {
	raw, marshalErr := json.Marshal(args)
	require.NoError(c.t, marshalErr)
	return c.send(&dap.LaunchRequest{Request: c.nextRequest("launch"), Arguments: raw})
}

func (c *clientScript) simple(command string) *clientScript {
	switch command {
	case "configurationDone":
		return c.send(&dap.ConfigurationDoneRequest{Request: c.nextRequest(command)})
	case "threads":
		return c.send(&dap.ThreadsRequest{Request: c.nextRequest(command)})
	case "pause":
		return c.send(&dap.PauseRequest{Request: c.nextRequest(command)})
	default:
		c.t.Fatalf("unsupported command in test script: %s", command)
		return c
	}
}

func (c *clientScript) disconnect(restart bool) *clientScript {
	return c.send(&dap.DisconnectRequest{
		Request:   c.nextRequest("disconnect"),
		Arguments: &dap.DisconnectArguments{Restart: restart, TerminateDebuggee: true},
	})
}

func (c *clientScript) runInTerminalResponse(requestSeq int, processId int) *clientScript {
	c.seq++
	return c.send(&dap.RunInTerminalResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Seq: c.seq, Type: "response"},
			Command:         "runInTerminal",
			RequestSeq:      requestSeq,
			Success:         true,
		},
		Body: dap.RunInTerminalResponseBody{ProcessId: processId},
	})
}

func (c *clientScript) reader() io.Reader {
	return bytes.NewReader(c.buf.Bytes())
}

// serve runs an adapter session over the script and returns what the adapter sent.
func serve(t *testing.T, script *clientScript) []dap.Message {
	t.Helper()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	out := testutil.NewBufferWriter()
	log := testutil.NewLogForTesting(t.Name())
	server := dap_writer.NewServer(dap_writer.ServerConfig{
		SessionID: t.Name(),
		Input:     script.reader(),
		Writer:    dap_writer.NewWriter(out, log),
		Handler:   NewAdapter(Config{Logger: log}),
		Logger:    log,
	})
	require.NoError(t, server.Serve(ctx))

	return decodeAll(t, out.Bytes())
}

func decodeAll(t *testing.T, data []byte) []dap.Message {
	t.Helper()

	bodies, splitErr := testutil.SplitFrames(data)
	require.NoError(t, splitErr)

	msgs := make([]dap.Message, 0, len(bodies))
	for _, body := range bodies {
		msg, decodeErr := dap.DecodeProtocolMessage(body)
		require.NoError(t, decodeErr, "adapter sent a message the client cannot decode: %s", body)
		msgs = append(msgs, msg)
	}
	return msgs
}

func requireSeqsIncreasing(t *testing.T, msgs []dap.Message) {
	t.Helper()
	for i, msg := range msgs {
		require.Equal(t, i+1, msg.GetSeq(), "adapter messages should be numbered consecutively")
	}
}

func TestAdapter_SessionLifecycle(t *testing.T) {
	t.Parallel()

	script := newClientScript(t).
		initialize(false).
		launch(launchArguments{Program: "app", Args: []string{"--port", "8080"}}).
		simple("configurationDone").
		simple("threads").
		disconnect(false).
		simple("threads") // never handled, the session is over

	msgs := serve(t, script)
	require.Len(t, msgs, 9)
	requireSeqsIncreasing(t, msgs)

	initResp, ok := msgs[0].(*dap.InitializeResponse)
	require.True(t, ok)
	assert.True(t, initResp.Success)
	assert.True(t, initResp.Body.SupportsConfigurationDoneRequest)
	assert.Equal(t, 1, initResp.RequestSeq)

	_, ok = msgs[1].(*dap.InitializedEvent)
	assert.True(t, ok)

	launchResp, ok := msgs[2].(*dap.LaunchResponse)
	require.True(t, ok)
	assert.True(t, launchResp.Success)

	output, ok := msgs[3].(*dap.OutputEvent)
	require.True(t, ok)
	assert.Equal(t, "app --port 8080\n", output.Body.Output)

	exited, ok := msgs[4].(*dap.ExitedEvent)
	require.True(t, ok)
	assert.Equal(t, 0, exited.Body.ExitCode)

	_, ok = msgs[5].(*dap.ConfigurationDoneResponse)
	assert.True(t, ok)

	threads, ok := msgs[6].(*dap.ThreadsResponse)
	require.True(t, ok)
	require.Len(t, threads.Body.Threads, 1)
	assert.Equal(t, mainThreadId, threads.Body.Threads[0].Id)

	_, ok = msgs[7].(*dap.DisconnectResponse)
	assert.True(t, ok)

	_, ok = msgs[8].(*dap.TerminatedEvent)
	assert.True(t, ok)
}

func TestAdapter_RunInTerminal(t *testing.T) {
	t.Parallel()

	// initialize: response 1, event 2; launch: response 3, reverse request 4
	const runInTerminalSeq = 4

	script := newClientScript(t).
		initialize(true).
		launch(launchArguments{Program: "app", Cwd: "/work", Console: consoleIntegratedTerminal}).
		runInTerminalResponse(runInTerminalSeq, 4242).
		disconnect(false)

	msgs := serve(t, script)
	require.Len(t, msgs, 7)
	requireSeqsIncreasing(t, msgs)

	req, ok := msgs[3].(*dap.RunInTerminalRequest)
	require.True(t, ok)
	assert.Equal(t, runInTerminalSeq, req.Seq)
	assert.Equal(t, "request", req.Type)
	assert.Equal(t, "integrated", req.Arguments.Kind)
	assert.Equal(t, "/work", req.Arguments.Cwd)
	assert.Equal(t, []string{"app"}, req.Arguments.Args)

	process, ok := msgs[4].(*dap.ProcessEvent)
	require.True(t, ok)
	assert.Equal(t, 4242, process.Body.SystemProcessId)
	assert.Equal(t, "app", process.Body.Name)

	_, ok = msgs[5].(*dap.DisconnectResponse)
	assert.True(t, ok)
	_, ok = msgs[6].(*dap.TerminatedEvent)
	assert.True(t, ok)
}

func TestAdapter_TerminalNotSupportedByClient(t *testing.T) {
	t.Parallel()

	script := newClientScript(t).
		initialize(false).
		launch(launchArguments{Program: "app", Console: consoleExternalTerminal})

	msgs := serve(t, script)
	require.Len(t, msgs, 5)

	for _, msg := range msgs {
		_, isReverseRequest := msg.(*dap.RunInTerminalRequest)
		assert.False(t, isReverseRequest, "client did not announce runInTerminal support")
	}
	_, ok := msgs[3].(*dap.OutputEvent)
	assert.True(t, ok)
}

func TestAdapter_DisconnectWithRestartKeepsSession(t *testing.T) {
	t.Parallel()

	script := newClientScript(t).
		initialize(false).
		disconnect(true).
		simple("threads")

	msgs := serve(t, script)
	require.Len(t, msgs, 4)

	_, ok := msgs[2].(*dap.DisconnectResponse)
	assert.True(t, ok)
	_, ok = msgs[3].(*dap.ThreadsResponse)
	assert.True(t, ok, "the exit requested by the restarting disconnect should have been cancelled")
}

func TestAdapter_ErrorResponses(t *testing.T) {
	t.Parallel()

	script := newClientScript(t).
		initialize(false).
		simple("pause").
		launch(launchArguments{})

	msgs := serve(t, script)
	require.Len(t, msgs, 4)

	unsupported, ok := msgs[2].(*dap.ErrorResponse)
	require.True(t, ok)
	assert.False(t, unsupported.Success)
	assert.Equal(t, "pause", unsupported.Command)
	require.NotNil(t, unsupported.Body.Error)
	assert.Equal(t, errorIdUnsupportedCommand, unsupported.Body.Error.Id)

	invalid, ok := msgs[3].(*dap.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "launch", invalid.Command)
	assert.Equal(t, errorIdInvalidArguments, invalid.Body.Error.Id)
}

func TestAdapter_BackgroundEventsGoThroughQueue(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	inputReader, inputWriter := io.Pipe()
	defer inputWriter.Close()

	out := testutil.NewBufferWriter()
	events := dap_writer.NewEventQueue(ctx, 0)
	server := dap_writer.NewServer(dap_writer.ServerConfig{
		Input:   inputReader,
		Writer:  dap_writer.NewWriter(out, logr.Discard()),
		Handler: NewAdapter(Config{Events: events}),
		Events:  events,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	script := newClientScript(t).
		initialize(false).
		launch(launchArguments{Program: "app"})
	_, writeErr := inputWriter.Write(script.buf.Bytes())
	require.NoError(t, writeErr)

	// initialize response, initialized event, launch response, output event, exited event
	pollErr := wait.PollUntilContextCancel(ctx, 10*time.Millisecond, true, func(_ context.Context) (bool, error) {
		return len(out.Writes()) == 5, nil
	})
	require.NoError(t, pollErr)

	msgs := decodeAll(t, out.Bytes())
	var output *dap.OutputEvent
	var exited *dap.ExitedEvent
	for _, msg := range msgs {
		switch m := msg.(type) {
		case *dap.OutputEvent:
			output = m
		case *dap.ExitedEvent:
			exited = m
			assert.NotNil(t, output, "output should be sent before the exit")
		}
	}
	require.NotNil(t, output)
	require.NotNil(t, exited)

	require.NoError(t, inputWriter.Close())
	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("server did not stop when input was closed")
	}
}

func TestAdapter_IgnoresUnknownResponses(t *testing.T) {
	t.Parallel()

	script := newClientScript(t).
		initialize(true).
		runInTerminalResponse(99, 1)

	msgs := serve(t, script)
	assert.Len(t, msgs, 2, "a response to no pending request should produce no output")
}

func TestAdapter_RunInTerminalEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	baseEnv := filepath.Join(dir, "base.env")
	localEnv := filepath.Join(dir, "local.env")
	require.NoError(t, os.WriteFile(baseEnv, []byte("PORT=8080\nMODE=base\nNAME=app\n"), 0600))
	require.NoError(t, os.WriteFile(localEnv, []byte("MODE=local\n"), 0600))

	script := newClientScript(t).
		initialize(true).
		launch(launchArguments{
			Program: "app",
			Console: consoleExternalTerminal,
			EnvFile: []string{baseEnv, localEnv},
			Env:     map[string]string{"NAME": "override"},
		})

	msgs := serve(t, script)
	require.Len(t, msgs, 4)

	req, ok := msgs[3].(*dap.RunInTerminalRequest)
	require.True(t, ok)
	assert.Equal(t, "external", req.Arguments.Kind)

	expected := map[string]interface{}{
		"PORT": "8080",
		"MODE": "local",
		"NAME": "override",
	}
	if diff := cmp.Diff(expected, req.Arguments.Env); diff != "" {
		t.Errorf("runInTerminal environment mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_MissingEnvFileIsInvalidArgument(t *testing.T) {
	t.Parallel()

	script := newClientScript(t).
		initialize(true).
		launch(launchArguments{
			Program: "app",
			EnvFile: []string{filepath.Join(t.TempDir(), "missing.env")},
		})

	msgs := serve(t, script)
	require.Len(t, msgs, 3)

	resp, ok := msgs[2].(*dap.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "launch", resp.Command)
	assert.Equal(t, errorIdInvalidArguments, resp.Body.Error.Id)
	assert.Contains(t, resp.Message, "environment files")
}
