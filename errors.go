package tellus

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Platform error codes, carried in the JSON-RPC error object.
const (
	CodeParseError    = -32700
	CodeInvalidParams = -32602
	CodeMethodMissing = -32601
	CodeEvaluation    = -32000 // graph evaluation failed
	CodeUnauthorized  = -32001
	CodeNotFound      = -32004 // unknown asset, catalog or task
	CodeQuotaExceeded = -32005
)

// Sentinel errors for common remote failure classes. *APIError values
// match these through errors.Is.
var (
	ErrUnauthorized = errors.New("tellus: unauthorized")
	ErrNotFound     = errors.New("tellus: not found")
)

// APIError is a structured error returned by the platform.
type APIError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tellus: remote error %d: %s", e.Code, e.Message)
}

// Is maps platform error codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == CodeUnauthorized
	case ErrNotFound:
		return e.Code == CodeNotFound
	}
	return false
}

// IsNotFound reports whether err is a remote not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnauthorized reports whether err is a remote authorization error.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
