// Package bot implements a Bot API client whose requests can be dispatched
// to background jobs.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/botkit/pkg/async"
	"github.com/vulntor/botkit/pkg/config"
)

// Kind is the client kind; its default job is named "bot.AsyncJob".
const Kind = "bot"

// ErrInvalidRequest is returned when request arguments are not a method
// name optionally followed by a parameter map.
var ErrInvalidRequest = errors.New("bot: invalid request")

// Client talks to one bot through the Bot API. Requests run inline or go to
// a job, depending on the embedded dispatcher's mode.
//
// A Client is safe for concurrent requests, but mode changes (SetMode,
// WithMode) must not race with requests on the same client.
type Client struct {
	*async.Dispatcher

	token    string
	username string
	server   string
	http     *http.Client
	logger   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for inline requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithServer overrides the Bot API server URL.
func WithServer(server string) Option {
	return func(c *Client) { c.server = strings.TrimSuffix(server, "/") }
}

// WithUsername sets the bot username.
func WithUsername(username string) Option {
	return func(c *Client) { c.username = username }
}

// New creates an off-mode client. resolver may be nil when the client is
// only used synchronously or with explicit jobs.
func New(id, token string, resolver *async.Resolver, opts ...Option) *Client {
	c := &Client{
		token:  token,
		server: config.DefaultServer,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: log.With().Str("component", "bot").Str("bot", id).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Dispatcher = async.NewDispatcher(id, Kind, resolver, c.call)
	return c
}

// NewFromConfig creates the client id described by cfg and applies its
// async setting.
func NewFromConfig(id string, cfg config.BotConfig, resolver *async.Resolver) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	server := cfg.Server
	if server == "" {
		server = config.DefaultServer
	}

	c := New(id, cfg.Token, resolver,
		WithServer(server),
		WithUsername(cfg.Username),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err := c.SetMode(cfg.Async); err != nil {
		return nil, fmt.Errorf("bot %s: %w", id, err)
	}
	return c, nil
}

// Username returns the configured bot username.
func (c *Client) Username() string { return c.username }

// Server returns the Bot API server URL.
func (c *Client) Server() string { return c.server }

// Call requests method with params. When the client is in async mode the
// result carries a receipt, otherwise Value holds the *Response.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (async.Result, error) {
	if params == nil {
		return c.Request(ctx, method)
	}
	return c.Request(ctx, method, params)
}

// SendMessage calls sendMessage.
func (c *Client) SendMessage(ctx context.Context, chatID any, text string) (async.Result, error) {
	return c.Call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
}

// call is the inline request implementation.
func (c *Client) call(ctx context.Context, args ...any) (any, error) {
	method, params, err := requestArgs(args)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("bot %s: encode %s: %w", c.ID(), method, err)
	}

	endpoint := c.server + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bot %s: build %s: %w", c.ID(), method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bot %s: %s: %w", c.ID(), method, redact(err, c.token))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("bot %s: read %s response: %w", c.ID(), method, err)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("bot %s: decode %s response (HTTP %d): %w", c.ID(), method, resp.StatusCode, err)
	}

	c.logger.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Bool("ok", out.OK).
		Msg("Request completed")

	if !out.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        out.ErrorCode,
			Description: out.Description,
		}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if out.Parameters != nil {
			apiErr.RetryAfter = out.Parameters.RetryAfter
		}
		return nil, apiErr
	}
	return &out, nil
}

const maxResponseSize = 16 << 20

// requestArgs splits request arguments into the method name and JSON
// parameters. Parameters that went through a job backend come back as
// map[string]any or map[any]any.
func requestArgs(args []any) (string, map[string]any, error) {
	if len(args) == 0 || len(args) > 2 {
		return "", nil, fmt.Errorf("%w: want method and optional params, got %d args", ErrInvalidRequest, len(args))
	}
	method, ok := args[0].(string)
	if !ok || method == "" || strings.ContainsAny(method, "/?#") {
		return "", nil, fmt.Errorf("%w: bad method %v", ErrInvalidRequest, args[0])
	}
	if len(args) == 1 || args[1] == nil {
		return method, map[string]any{}, nil
	}

	switch p := args[1].(type) {
	case map[string]any:
		return method, p, nil
	case map[string]string:
		params := make(map[string]any, len(p))
		for k, v := range p {
			params[k] = v
		}
		return method, params, nil
	case map[any]any:
		params := make(map[string]any, len(p))
		for k, v := range p {
			key, ok := k.(string)
			if !ok {
				return "", nil, fmt.Errorf("%w: param key %v is not a string", ErrInvalidRequest, k)
			}
			params[key] = v
		}
		return method, params, nil
	default:
		return "", nil, fmt.Errorf("%w: params must be a map, got %T", ErrInvalidRequest, args[1])
	}
}

// redact removes the token from the URL of a transport error, keeping the
// error chain intact.
func redact(err error, token string) error {
	var ue *url.Error
	if token != "" && errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, token, "<token>")
	}
	return err
}

var _ async.Client = (*Client)(nil)
