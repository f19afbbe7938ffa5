package commands

import (
	"errors"

	"github.com/vulntor/botkit/pkg/async"
	"github.com/vulntor/botkit/pkg/bot"
	"github.com/vulntor/botkit/pkg/config"
	"github.com/vulntor/botkit/pkg/jobs"
)

const (
	codeBotNotFound     = "BOT_NOT_FOUND"
	codeInvalidConfig   = "INVALID_CONFIG"
	codeEnqueueFailed   = "ENQUEUE_FAILED"
	codeRequestFailed   = "REQUEST_FAILED"
	codeInvalidArgument = "INVALID_ARGUMENT"
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with a CLI error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// ErrorCode resolves an error to its CLI error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	var verr *config.ValidationError
	switch {
	case errors.Is(err, async.ErrClientNotFound):
		return codeBotNotFound
	case errors.Is(err, async.ErrConfiguration), errors.As(err, &verr):
		return codeInvalidConfig
	case errors.Is(err, bot.ErrInvalidRequest):
		return codeInvalidArgument
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed), errors.Is(err, jobs.ErrInvalidJob):
		return codeEnqueueFailed
	default:
		return codeRequestFailed
	}
}

// ExitCode maps CLI errors to process exit codes.
//
//   - 0: Success
//   - 1: General error
//   - 2: Invalid usage/input
//   - 4: Not found
//   - 7: Service unavailable (queue full or closed)
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch ErrorCode(err) {
	case codeInvalidArgument, codeInvalidConfig:
		return 2
	case codeBotNotFound:
		return 4
	case codeEnqueueFailed:
		return 7
	default:
		return 1
	}
}
