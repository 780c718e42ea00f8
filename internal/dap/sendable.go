/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"encoding/json"
	"reflect"

	"github.com/google/go-dap"
)

// SendableKind identifies which kind of message a Sendable carries.
type SendableKind int

const (
	// SendableNone is the kind of the zero Sendable, which carries no message.
	SendableNone SendableKind = iota
	// SendableEvent is an event sent to the client.
	SendableEvent
	// SendableResponse is a response to a request made by the client.
	SendableResponse
	// SendableReverseRequest is a request sent by the adapter to the client.
	SendableReverseRequest
)

// String returns a human-readable representation of the kind.
func (k SendableKind) String() string {
	switch k {
	case SendableEvent:
		return "event"
	case SendableResponse:
		return "response"
	case SendableReverseRequest:
		return "reverseRequest"
	default:
		return "none"
	}
}

// Sendable is a message that can be written to the client: exactly one of an event,
// a response, or a reverse request.
//
// On the wire a Sendable is the wrapped message's own JSON, with no wrapper field
// identifying the kind. Receivers tell the kinds apart by the message's "type" field,
// so every wrapped message must carry one.
type Sendable struct {
	kind SendableKind
	msg  dap.Message
}

// NewEventSendable wraps an event.
func NewEventSendable(event dap.EventMessage) Sendable {
	return Sendable{kind: SendableEvent, msg: event}
}

// NewResponseSendable wraps a response.
func NewResponseSendable(response dap.ResponseMessage) Sendable {
	return Sendable{kind: SendableResponse, msg: response}
}

// NewReverseRequestSendable wraps a request issued by the adapter to the client.
func NewReverseRequestSendable(request dap.RequestMessage) Sendable {
	return Sendable{kind: SendableReverseRequest, msg: request}
}

// Kind returns the kind of message the Sendable carries.
func (s Sendable) Kind() SendableKind {
	if s.isEmpty() {
		return SendableNone
	}
	return s.kind
}

// Message returns the wrapped message, or nil for the zero Sendable.
func (s Sendable) Message() dap.Message {
	if s.isEmpty() {
		return nil
	}
	return s.msg
}

// Seq returns the sequence number of the wrapped message, or 0 for the zero Sendable.
func (s Sendable) Seq() int {
	if s.isEmpty() {
		return 0
	}
	return s.msg.GetSeq()
}

// MarshalJSON serializes the wrapped message as-is.
func (s Sendable) MarshalJSON() ([]byte, error) {
	if s.isEmpty() {
		return nil, ErrEmptySendable
	}
	return json.Marshal(s.msg)
}

// isEmpty also catches typed nil pointers stored in the message interface,
// which would otherwise serialize as "null".
func (s Sendable) isEmpty() bool {
	if s.msg == nil {
		return true
	}

	v := reflect.ValueOf(s.msg)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

var _ json.Marshaler = Sendable{}
