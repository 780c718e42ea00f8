// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package dapecho implements a minimal debug adapter that pretends to run a program.
// It answers the requests a client sends during a debug session lifecycle
// and is used to exercise the outbound DAP writer end to end.
package dapecho

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
	"github.com/joho/godotenv"

	dap_writer "github.com/microsoft/dapwriter/internal/dap"
)

const (
	consoleIntegratedTerminal = "integratedTerminal"
	consoleExternalTerminal   = "externalTerminal"

	errorIdUnsupportedCommand = 1001
	errorIdInvalidArguments   = 1002

	mainThreadId = 1
)

// Config contains the configuration for an Adapter.
type Config struct {
	// Events receives events produced outside of request handling, e.g. output of the pretend program.
	// If nil, such events are sent directly while handling the request that caused them.
	Events *dap_writer.EventQueue

	Logger logr.Logger
}

// launchArguments are the launch request arguments the adapter understands.
type launchArguments struct {
	Program string   `json:"program"`
	Args    []string `json:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
	Console string   `json:"console,omitempty"`

	Env     map[string]string `json:"env,omitempty"`
	EnvFile []string          `json:"envFile,omitempty"`
}

// environment merges the variables from the env files (later files win) with Env, which takes precedence.
func (args launchArguments) environment() (map[string]string, error) {
	env := make(map[string]string)
	if len(args.EnvFile) > 0 {
		fileEnv, readErr := godotenv.Read(args.EnvFile...)
		if readErr != nil {
			return nil, fmt.Errorf("could not read environment files: %w", readErr)
		}
		maps.Copy(env, fileEnv)
	}
	maps.Copy(env, args.Env)
	return env, nil
}

// Adapter is a dap_writer.Handler that plays the debug adapter side of a session.
type Adapter struct {
	log     logr.Logger
	events  *dap_writer.EventQueue
	seq     *sequenceCounter
	pending *pendingRequestMap

	clientSupportsTerminal bool
	program                string
}

// NewAdapter creates a new Adapter with the given configuration.
func NewAdapter(config Config) *Adapter {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Adapter{
		log:     log,
		events:  config.Events,
		seq:     newSequenceCounter(),
		pending: newPendingRequestMap(),
	}
}

// HandleMessage handles one message received from the client.
func (a *Adapter) HandleMessage(ctx context.Context, msg dap.Message, w *dap_writer.Writer) error {
	switch m := msg.(type) {
	case *dap.InitializeRequest:
		return a.onInitialize(m, w)

	case *dap.LaunchRequest:
		return a.onLaunch(ctx, m, w)

	case *dap.ConfigurationDoneRequest:
		return w.SendResponse(&dap.ConfigurationDoneResponse{Response: a.newResponse(&m.Request)})

	case *dap.ThreadsRequest:
		return w.SendResponse(&dap.ThreadsResponse{
			Response: a.newResponse(&m.Request),
			Body: dap.ThreadsResponseBody{
				Threads: []dap.Thread{{Id: mainThreadId, Name: "main"}},
			},
		})

	case *dap.DisconnectRequest:
		return a.onDisconnect(m, w)

	case *dap.RunInTerminalResponse:
		return a.onRunInTerminalResponse(m, w)

	case *dap.ErrorResponse:
		if req := a.pending.Take(m.RequestSeq); req != nil {
			a.log.Info("Client rejected reverse request", "Command", req.command, "Message", m.Message)
			return a.sendOutput(w, fmt.Sprintf("%s failed: %s\n", req.command, m.Message))
		}
		a.log.Info("Received error response for unknown request", "RequestSeq", m.RequestSeq)
		return nil

	case dap.RequestMessage:
		req := m.GetRequest()
		return w.SendResponse(a.newErrorResponse(req, errorIdUnsupportedCommand, fmt.Sprintf("Command '%s' is not supported", req.Command)))

	default:
		a.log.V(1).Info("Ignoring unexpected message from client", "Type", fmt.Sprintf("%T", msg), "Seq", msg.GetSeq())
		return nil
	}
}

func (a *Adapter) onInitialize(req *dap.InitializeRequest, w *dap_writer.Writer) error {
	a.clientSupportsTerminal = req.Arguments.SupportsRunInTerminalRequest

	resp := &dap.InitializeResponse{
		Response: a.newResponse(&req.Request),
		Body: dap.Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportTerminateDebuggee:         true,
		},
	}
	if sendErr := w.SendResponse(resp); sendErr != nil {
		return sendErr
	}

	return w.SendEvent(&dap.InitializedEvent{Event: a.newEvent("initialized")})
}

func (a *Adapter) onLaunch(ctx context.Context, req *dap.LaunchRequest, w *dap_writer.Writer) error {
	var args launchArguments
	if len(req.Arguments) > 0 {
		if unmarshalErr := json.Unmarshal(req.Arguments, &args); unmarshalErr != nil {
			return w.SendResponse(a.newErrorResponse(&req.Request, errorIdInvalidArguments, fmt.Sprintf("Invalid launch arguments: %v", unmarshalErr)))
		}
	}
	if args.Program == "" {
		return w.SendResponse(a.newErrorResponse(&req.Request, errorIdInvalidArguments, "The 'program' launch argument is required"))
	}

	env, envErr := args.environment()
	if envErr != nil {
		a.log.Info("Launch environment is invalid", "EnvFile", args.EnvFile, "Error", envErr.Error())
		return w.SendResponse(a.newErrorResponse(&req.Request, errorIdInvalidArguments, envErr.Error()))
	}

	a.program = args.Program
	if sendErr := w.SendResponse(&dap.LaunchResponse{Response: a.newResponse(&req.Request)}); sendErr != nil {
		return sendErr
	}

	kind := terminalKind(args.Console)
	if kind != "" && a.clientSupportsTerminal {
		return a.runInTerminal(args, kind, env, w)
	}

	return a.runInBackground(ctx, args, w)
}

// runInTerminal asks the client to start the program in a terminal.
// The client's response is handled by onRunInTerminalResponse.
func (a *Adapter) runInTerminal(args launchArguments, kind string, env map[string]string, w *dap_writer.Writer) error {
	req := &dap.RunInTerminalRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: a.seq.Next(), Type: "request"},
			Command:         "runInTerminal",
		},
		Arguments: dap.RunInTerminalRequestArguments{
			Kind:  kind,
			Title: args.Program,
			Cwd:   args.Cwd,
			Args:  append([]string{args.Program}, args.Args...),
		},
	}
	if len(env) > 0 {
		req.Arguments.Env = make(map[string]interface{}, len(env))
		for k, v := range env {
			req.Arguments.Env[k] = v
		}
	}

	a.pending.Add(req.Seq, &pendingRequest{command: req.Command, request: req})
	if sendErr := w.SendReverseRequest(req); sendErr != nil {
		_ = a.pending.Take(req.Seq)
		return sendErr
	}

	return nil
}

// runInBackground pretends to run the program and reports its output and exit as events.
func (a *Adapter) runInBackground(ctx context.Context, args launchArguments, w *dap_writer.Writer) error {
	output := &dap.OutputEvent{
		Event: a.newEvent("output"),
		Body: dap.OutputEventBody{
			Category: "stdout",
			Output:   strings.TrimSpace(strings.Join(append([]string{args.Program}, args.Args...), " ")) + "\n",
		},
	}

	if a.events == nil {
		if sendErr := w.SendEvent(output); sendErr != nil {
			return sendErr
		}
		return w.SendEvent(a.newExitedEvent(0))
	}

	go func() {
		for _, event := range []dap.EventMessage{output, a.newExitedEvent(0)} {
			if postErr := a.events.Post(event); postErr != nil {
				if ctx.Err() == nil {
					a.log.Error(postErr, "Could not queue program event")
				}
				return
			}
		}
	}()

	return nil
}

func (a *Adapter) onRunInTerminalResponse(resp *dap.RunInTerminalResponse, w *dap_writer.Writer) error {
	req := a.pending.Take(resp.RequestSeq)
	if req == nil {
		a.log.Info("Received runInTerminal response for unknown request", "RequestSeq", resp.RequestSeq)
		return nil
	}

	return w.SendEvent(&dap.ProcessEvent{
		Event: a.newEvent("process"),
		Body: dap.ProcessEventBody{
			Name:            a.program,
			SystemProcessId: resp.Body.ProcessId,
			IsLocalProcess:  true,
			StartMethod:     "launch",
		},
	})
}

// onDisconnect ends the session. A disconnect that asks for a restart keeps the
// session alive, so the exit requested while handling it is cancelled right away.
func (a *Adapter) onDisconnect(req *dap.DisconnectRequest, w *dap_writer.Writer) error {
	if sendErr := w.SendResponse(&dap.DisconnectResponse{Response: a.newResponse(&req.Request)}); sendErr != nil {
		return sendErr
	}

	w.RequestExit()

	if req.Arguments != nil && req.Arguments.Restart {
		w.CancelExit()
		a.log.V(1).Info("Client is restarting the session")
		return nil
	}

	if pendingCount := a.pending.Len(); pendingCount > 0 {
		a.log.Info("Session ends with reverse requests still pending", "Count", pendingCount)
	}

	return w.SendEvent(&dap.TerminatedEvent{Event: a.newEvent("terminated")})
}

func (a *Adapter) sendOutput(w *dap_writer.Writer, text string) error {
	return w.SendEvent(&dap.OutputEvent{
		Event: a.newEvent("output"),
		Body: dap.OutputEventBody{
			Category: "console",
			Output:   text,
		},
	})
}

func (a *Adapter) newResponse(req *dap.Request) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.seq.Next(), Type: "response"},
		Command:         req.Command,
		RequestSeq:      req.Seq,
		Success:         true,
	}
}

func (a *Adapter) newErrorResponse(req *dap.Request, id int, message string) *dap.ErrorResponse {
	resp := a.newResponse(req)
	resp.Success = false
	resp.Message = message

	return &dap.ErrorResponse{
		Response: resp,
		Body: dap.ErrorResponseBody{
			Error: &dap.ErrorMessage{
				Id:       id,
				Format:   message,
				ShowUser: true,
			},
		},
	}
}

func (a *Adapter) newEvent(event string) dap.Event {
	return dap.Event{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.seq.Next(), Type: "event"},
		Event:           event,
	}
}

func (a *Adapter) newExitedEvent(exitCode int) *dap.ExitedEvent {
	return &dap.ExitedEvent{
		Event: a.newEvent("exited"),
		Body:  dap.ExitedEventBody{ExitCode: exitCode},
	}
}

func terminalKind(console string) string {
	switch console {
	case consoleIntegratedTerminal:
		return "integrated"
	case consoleExternalTerminal:
		return "external"
	default:
		return ""
	}
}

var _ dap_writer.Handler = (*Adapter)(nil)
