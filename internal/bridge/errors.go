package bridge

import "fmt"

// Error codes follow the JSON-RPC convention the content side already
// speaks.
const (
	CodeInvalidParams   = -32602
	CodeInternal        = -32603
	CodeChannelNotFound = -32601
	CodeRejected        = -32000
)

// Error is a bridge-level failure returned to content.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

func ErrChannelNotFound(channel string) *Error {
	return &Error{Code: CodeChannelNotFound, Message: fmt.Sprintf("channel not found: %s", channel)}
}

func ErrInvalidParams(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg}
}

func ErrInternal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// ErrRejected marks a request that was understood but refused, like a
// window request for an unsupported page.
func ErrRejected(msg string) *Error {
	return &Error{Code: CodeRejected, Message: msg}
}
