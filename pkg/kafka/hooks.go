package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes message handling. Before may rewrite the payload or
// reject the message; a rejection skips the handler and counts as a failure.
type ConsumerHook interface {
	Before(ctx context.Context, km kafka.Message) (context.Context, []byte, error)
	After(ctx context.Context, km kafka.Message, err error)
}

// HookFuncs adapts plain functions to ConsumerHook. Nil fields are no-ops.
type HookFuncs struct {
	BeforeFn func(ctx context.Context, km kafka.Message) (context.Context, []byte, error)
	AfterFn  func(ctx context.Context, km kafka.Message, err error)
}

func (h HookFuncs) Before(ctx context.Context, km kafka.Message) (context.Context, []byte, error) {
	if h.BeforeFn == nil {
		return ctx, km.Value, nil
	}
	return h.BeforeFn(ctx, km)
}

func (h HookFuncs) After(ctx context.Context, km kafka.Message, err error) {
	if h.AfterFn != nil {
		h.AfterFn(ctx, km, err)
	}
}

// HookChain runs Before in order, threading context and payload, and After
// in reverse order.
type HookChain []ConsumerHook

func (c HookChain) Before(ctx context.Context, km kafka.Message) (context.Context, []byte, error) {
	for _, h := range c {
		var (
			data []byte
			err  error
		)
		ctx, data, err = h.Before(ctx, km)
		if err != nil {
			return ctx, km.Value, err
		}
		km.Value = data
	}
	return ctx, km.Value, nil
}

func (c HookChain) After(ctx context.Context, km kafka.Message, err error) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].After(ctx, km, err)
	}
}

type traceKey struct{}

const TraceHeader = "x-trace-id"

// TraceHook copies the x-trace-id header into the handler context.
func TraceHook() ConsumerHook {
	return HookFuncs{
		BeforeFn: func(ctx context.Context, km kafka.Message) (context.Context, []byte, error) {
			for _, h := range km.Headers {
				if h.Key == TraceHeader && len(h.Value) > 0 {
					return context.WithValue(ctx, traceKey{}, string(h.Value)), km.Value, nil
				}
			}
			return ctx, km.Value, nil
		},
	}
}

// TraceID returns the trace id stored by TraceHook, if any.
func TraceID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceKey{}).(string)
	return id, ok
}
