// Package errcode defines the error codes shared by every aistack package.
//
// Errors are created with github.com/morikuni/failure/v2 so callers can
// branch on the code with failure.Is while the message stays human readable.
package errcode

import (
	"github.com/morikuni/failure/v2"
)

// ErrorCode classifies an error by what the caller can do about it.
type ErrorCode string

const (
	// NotFound is returned when a named template, file or server does not exist.
	NotFound ErrorCode = "NotFound"
	// InvalidFormat is returned when a template or override cannot be parsed or is missing fields.
	InvalidFormat ErrorCode = "InvalidFormat"
	// StructuralError is returned when a resolved configuration cannot be read as a document.
	StructuralError ErrorCode = "StructuralError"
	// Conflict is returned when two servers would be written under the same id.
	Conflict ErrorCode = "Conflict"
	// Unavailable is returned when the registry or another network peer cannot be reached.
	Unavailable ErrorCode = "Unavailable"
)

// Message returns the user facing message attached to err, or err.Error()
// when the error carries none.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := failure.MessageOf(err); msg.String() != "" {
		return msg.String()
	}
	return err.Error()
}
