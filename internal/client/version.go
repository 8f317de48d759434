package client

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// ServerVersion is the client protocol version this server speaks.
const ServerVersion = "v1.2.0"

// VersionError is returned when the client speaks an incompatible protocol version.
type VersionError struct {
	Code    string
	Message string
}

func (e *VersionError) Error() string {
	return e.Message
}

// CheckVersion reports whether a client at version can talk to this server.
// An empty version is accepted. Otherwise the major versions must match.
//
// Examples:
//   - "" → ok
//   - "1.0.0", "v1.9.3" → ok
//   - "v2.0.0" → VersionError
//   - "latest" → VersionError
func CheckVersion(version string) error {
	if version == "" {
		return nil
	}
	v := normalizeVersion(version)
	if !semver.IsValid(v) {
		return &VersionError{
			Code:    VersionUnsupported,
			Message: fmt.Sprintf("client version %q is not a semantic version", version),
		}
	}
	if semver.Major(v) != semver.Major(ServerVersion) {
		return &VersionError{
			Code:    VersionUnsupported,
			Message: fmt.Sprintf("client version %s is incompatible with server version %s", v, ServerVersion),
		}
	}
	return nil
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
