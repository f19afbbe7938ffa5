package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/vulntor/botkit/cmd/botkit/internal/format"
	"github.com/vulntor/botkit/pkg/async"
	"github.com/vulntor/botkit/pkg/bot"
)

type sendOptions struct {
	async   bool
	sync    bool
	job     string
	timeout time.Duration
}

func newSendCommand() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send <bot> <method> [key=value...]",
		Short: "Send a Bot API request",
		Long: `Send a Bot API request for a configured bot.

The bot's configured async setting decides whether the request runs now or is
enqueued; --sync, --async and --job override it for this request only. With
the memory backend queued requests are performed before the command exits.

Values that look like numbers, booleans or JSON are sent as such:

  botkit send alerts sendMessage chat_id=-1001234 text="deploy finished"
  botkit send alerts sendMessage chat_id=42 text=hi --sync`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, args[0], args[1], args[2:])
		},
	}

	cmd.Flags().BoolVar(&opts.async, "async", false, "Enqueue on the bot's default job")
	cmd.Flags().BoolVar(&opts.sync, "sync", false, "Send inline, bypassing the job queue")
	cmd.Flags().StringVar(&opts.job, "job", "", "Enqueue on the named job")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Time to wait for queued requests with the memory backend")
	cmd.MarkFlagsMutuallyExclusive("async", "sync", "job")

	return cmd
}

// override returns the mode value for this request, or nil to keep the
// bot's configured mode.
func (o *sendOptions) override() any {
	switch {
	case o.sync:
		return false
	case o.async:
		return true
	case o.job != "":
		return o.job
	default:
		return nil
	}
}

func runSend(cmd *cobra.Command, opts *sendOptions, botID, method string, pairs []string) error {
	params, err := parseParams(pairs)
	if err != nil {
		return WithErrorCode(err, codeInvalidArgument)
	}

	rt, err := prepareRuntime(cmd)
	if err != nil {
		return err
	}

	client, err := rt.registry.Get(botID)
	if err != nil {
		return WithErrorCode(err, codeBotNotFound)
	}

	ctx := cmd.Context()
	call := func() (async.Result, error) {
		return client.Call(ctx, method, params)
	}
	var res async.Result
	if value := opts.override(); value != nil {
		res, err = async.WithMode(client, value, call)
	} else {
		res, err = call()
	}
	if err != nil {
		return err
	}

	// An in-process queue only lives as long as this command. Workers start
	// once the request has been issued and the bot's mode restored.
	if res.Enqueued() && rt.cfg.Jobs.Backend != "spool" {
		if err := drainMemory(ctx, rt, opts.timeout); err != nil {
			return err
		}
	}

	return printResult(format.FromCommand(cmd), botID, method, res)
}

func drainMemory(ctx context.Context, rt *runtime, timeout time.Duration) error {
	defer rt.logJobEvents()()

	if err := rt.backend.Start(ctx); err != nil {
		return WithErrorCode(err, codeEnqueueFailed)
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := rt.backend.Stop(stopCtx); err != nil {
		return WithErrorCode(fmt.Errorf("waiting for queued request: %w", err), codeRequestFailed)
	}
	if st := rt.backend.Status(); st.Failed > 0 {
		return WithErrorCode(fmt.Errorf("queued request failed after %d attempt(s)", rt.cfg.Jobs.MaxAttempts), codeRequestFailed)
	}
	return nil
}

func printResult(f format.Formatter, botID, method string, res async.Result) error {
	if res.Enqueued() {
		r := res.Receipt
		if f.IsJSON() {
			return f.PrintJSON(r)
		}
		if err := f.PrintTable(
			[]string{"job_id", "job", "bot", "backend"},
			[][]string{{r.JobID, r.Type, r.ClientID, r.Backend}},
		); err != nil {
			return err
		}
		return f.PrintSummary(fmt.Sprintf("✓ %s enqueued for %s", method, botID))
	}

	resp, ok := res.Value.(*bot.Response)
	if !ok {
		return f.PrintJSON(res.Value)
	}
	if f.IsJSON() {
		return f.PrintJSON(resp)
	}

	var pretty any
	if err := json.Unmarshal(resp.Result, &pretty); err != nil {
		pretty = string(resp.Result)
	}
	if err := f.PrintJSON(pretty); err != nil {
		return err
	}
	return f.PrintSummary(fmt.Sprintf("✓ %s sent for %s", method, botID))
}

// parseParams turns key=value pairs into request parameters.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("parameter %q given twice", key)
		}
		params[key] = parseValue(raw)
	}
	return params, nil
}

func parseValue(raw string) any {
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	if n, err := cast.ToInt64E(raw); err == nil && looksNumeric(raw) {
		return n
	}
	if raw == "true" || raw == "false" {
		return cast.ToBool(raw)
	}
	return raw
}

func looksNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
