package groutine

import (
	"context"
	"fmt"
	"runtime/pprof"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// Go runs fn in a goroutine labelled with name (visible in pprof goroutine dumps) and
// returns a channel that receives fn's result exactly once. A panic in fn is recovered and
// delivered as an error.
//
//	errc := groutine.Go(ctx, "advertise", func(ctx context.Context) error {
//	    return binder.Advertise(ctx, name, services, nil)
//	})
//
// If parentCtx is nil, context.Background() is used.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context) error) <-chan error {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	errc := make(chan error, 1)
	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("goroutine %s panicked: %v", name, r)
			}
		}()
		ctx = context.WithValue(ctx, goroutineNameKey, name)
		errc <- fn(ctx)
	})

	return errc
}

// GetName retrieves the goroutine name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
