/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package version

import (
	"strconv"
	"time"
)

const (
	DevelopmentVersion = "dev"

	// The DAP protocol version the writer produces messages for.
	ProtocolVersion = "1.65"
)

// Set at link time via -ldflags "-X ...".
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

type VersionOutput struct {
	Version         string     `json:"version"`
	ProtocolVersion string     `json:"protocolVersion"`
	CommitHash      string     `json:"commitHash,omitempty"`
	BuildTime       *time.Time `json:"buildTimestamp,omitempty"`
}

func Version() VersionOutput {
	out := VersionOutput{
		Version:         ProductVersion,
		ProtocolVersion: ProtocolVersion,
		CommitHash:      CommitHash,
	}
	if out.Version == "" {
		out.Version = DevelopmentVersion
	}

	if buildTime, ok := parseBuildTimestamp(BuildTimestamp); ok {
		out.BuildTime = &buildTime
	}

	return out
}

// parseBuildTimestamp accepts either Unix seconds or an RFC 3339 timestamp.
func parseBuildTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if seconds, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
