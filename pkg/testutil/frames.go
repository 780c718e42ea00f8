package testutil

import (
	"bytes"
	"fmt"
	"strconv"
)

const contentLengthPrefix = "Content-Length: "

// SplitFrames parses a stream of "Content-Length: N\r\n\r\n<body>\r\n" frames and returns the bodies.
// It fails if the data is not an exact sequence of well-formed frames.
func SplitFrames(data []byte) ([][]byte, error) {
	var bodies [][]byte

	for offset := 0; len(data) > 0; {
		if !bytes.HasPrefix(data, []byte(contentLengthPrefix)) {
			return nil, fmt.Errorf("frame at offset %d does not start with a Content-Length header: %q", offset, data)
		}
		rest := data[len(contentLengthPrefix):]

		headerEnd := bytes.Index(rest, []byte("\r\n\r\n"))
		if headerEnd <= 0 {
			return nil, fmt.Errorf("header of frame at offset %d is not terminated by an empty line", offset)
		}

		length, parseErr := strconv.Atoi(string(rest[:headerEnd]))
		if parseErr != nil || length < 0 {
			return nil, fmt.Errorf("frame at offset %d has an invalid Content-Length '%s'", offset, rest[:headerEnd])
		}
		rest = rest[headerEnd+4:]

		if len(rest) < length+2 {
			return nil, fmt.Errorf("body of frame at offset %d is truncated", offset)
		}
		if string(rest[length:length+2]) != "\r\n" {
			return nil, fmt.Errorf("body of frame at offset %d is not followed by CRLF", offset)
		}

		bodies = append(bodies, rest[:length])
		consumed := len(data) - len(rest) + length + 2
		offset += consumed
		data = data[consumed:]
	}

	return bodies, nil
}
