/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bytes"
	"fmt"

	"github.com/google/go-dap"
)

// frameTerminator follows the body of every frame.
var frameTerminator = []byte("\r\n")

// EncodeFrame serializes the Sendable and wraps it in a frame:
//
//	Content-Length: <N>\r\n\r\n<body>\r\n
//
// where N is the byte length of body. It returns the serialized body and the complete frame.
// On failure nothing is returned and the error matches ErrSerialization.
func EncodeFrame(s Sendable) (body []byte, frame []byte, err error) {
	body, marshalErr := s.MarshalJSON()
	if marshalErr != nil {
		return nil, nil, serializationError(fmt.Errorf("failed to serialize %s message: %w", s.Kind(), marshalErr))
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(frameTerminator) + 32)

	// Writes to a bytes.Buffer cannot fail.
	_ = dap.WriteBaseMessage(&buf, body)
	buf.Write(frameTerminator)

	return body, buf.Bytes(), nil
}
