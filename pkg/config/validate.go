package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError reports the first configuration field that failed
// validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ValidationError{
		Field:  fieldPath(fe.Namespace()),
		Reason: reason(fe),
	}
}

// fieldPath turns "Config.Bots[alerts].Token" into "bots.alerts.token".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	ns = strings.NewReplacer("[", ".", "]", "").Replace(ns)
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		if key, ok := fieldKeys[p]; ok {
			parts[i] = key
		}
	}
	return strings.Join(parts, ".")
}

var fieldKeys = map[string]string{
	"Log":          "log",
	"Level":        "level",
	"Format":       "format",
	"Jobs":         "jobs",
	"Backend":      "backend",
	"Concurrency":  "concurrency",
	"QueueSize":    "queue_size",
	"MaxAttempts":  "max_attempts",
	"RetryDelay":   "retry_delay",
	"PollInterval": "poll_interval",
	"ClaimLease":   "claim_lease",
	"SpoolDir":     "spool_dir",
	"Named":        "named",
	"Bots":         "bots",
	"Token":        "token",
	"Server":       "server",
	"Timeout":      "timeout",
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "url":
		return "must be a URL"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
