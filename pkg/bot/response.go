package bot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAPI is matched by every *APIError.
var ErrAPI = errors.New("bot: api error")

// Response is the Bot API response envelope.
type Response struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters carries extra information about a failed request.
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

// Decode unmarshals the result into v.
func (r *Response) Decode(v any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("bot: empty result")
	}
	return json.Unmarshal(r.Result, v)
}

// APIError is a request the Bot API answered with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int // seconds, set on 429
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("bot: %s failed (%d): %s, retry after %ds", e.Method, e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("bot: %s failed (%d): %s", e.Method, e.Code, e.Description)
}

// Is makes errors.Is(err, ErrAPI) match.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}
