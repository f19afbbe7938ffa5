package appctx

import (
	"context"

	"github.com/vulntor/botkit/pkg/bot"
)

const registryKey key = "botkit.bot.registry"

// WithRegistry stores the bot registry built for this invocation.
func WithRegistry(ctx context.Context, registry *bot.Registry) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, registryKey, registry)
}

// Registry retrieves the bot registry from context.
func Registry(ctx context.Context) (*bot.Registry, bool) {
	if ctx == nil {
		return nil, false
	}
	reg, ok := ctx.Value(registryKey).(*bot.Registry)
	return reg, ok && reg != nil
}
