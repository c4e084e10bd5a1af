package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCode is the sentinel code carried by a stream error
type ErrorCode string

const (
	ErrorStoppedGenerating ErrorCode = "-2"
	ErrorUnexpected        ErrorCode = "-1"
	ErrorCommon            ErrorCode = "0"
	ErrorProvider          ErrorCode = "1"
	ErrorBot               ErrorCode = "2"
	ErrorRateLimit         ErrorCode = "3"
)

// Canned user-facing messages
const (
	RateLimitMessage  = "You have reached the search limit for now. Please try again later."
	UnexpectedMessage = "Unexpected error occurred. Please try again later."
)

var fallbackMessages = map[ErrorCode]string{
	ErrorStoppedGenerating: "Response generation was stopped.",
	ErrorUnexpected:        UnexpectedMessage,
	ErrorCommon:            "Something went wrong. Please try again.",
	ErrorProvider:          "The answer provider failed to respond. Please try again later.",
	ErrorBot:               "The search assistant could not answer this question.",
	ErrorRateLimit:         RateLimitMessage,
}

// FallbackMessage returns the message shown when the server did not supply one
func FallbackMessage(code ErrorCode) string {
	if msg, ok := fallbackMessages[code]; ok {
		return msg
	}
	return fallbackMessages[ErrorUnexpected]
}

// UnmarshalJSON accepts the code as either a JSON string or a JSON number.
func (c *ErrorCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ErrorCode(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid error code %s: %w", data, err)
	}
	*c = ErrorCode(n.String())
	return nil
}

// ChunkError is the terminal failure recorded on a chunk
type ChunkError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewChunkError applies the message policy for a code: rate limits always
// use the canned text, and an empty server message falls back to the table.
func NewChunkError(code ErrorCode, message string) *ChunkError {
	if code == "" {
		code = ErrorUnexpected
	}
	switch {
	case code == ErrorRateLimit:
		message = RateLimitMessage
	case strings.TrimSpace(message) == "":
		message = FallbackMessage(code)
	}
	return &ChunkError{Code: code, Message: message}
}

// Stopped reports whether generation was stopped early rather than failing
func (e ChunkError) Stopped() bool {
	return e.Code == ErrorStoppedGenerating
}

// Error implements error
func (e ChunkError) Error() string {
	return fmt.Sprintf("search error %s: %s", e.Code, e.Message)
}
