package util

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// SharedCall runs fn at most once per in-flight key in g. The call runs on a
// context detached from ctx's cancellation so one departing caller cannot
// fail the others sharing it; each caller still returns ctx.Err() as soon as
// its own ctx ends.
func SharedCall(ctx context.Context, g *singleflight.Group, key string, fn func(ctx context.Context) (any, error)) (v any, err error, shared bool) {
	detached := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case r := <-ch:
		return r.Val, r.Err, r.Shared
	}
}
