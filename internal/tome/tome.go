// Package tome resolves and caches ability metadata (display name, icon and
// recast duration) keyed by the ability id found in log lines.
package tome

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownAction is returned by a Resolver when the id names no ability.
var ErrUnknownAction = errors.New("tome: unknown action")

// Action is the resolved metadata for one ability.
type Action struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Icon   string        `json:"icon"`
	Recast time.Duration `json:"recast"`
}

// Resolver looks up ability metadata from an external source.
type Resolver interface {
	Resolve(ctx context.Context, id string) (Action, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, id string) (Action, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, id string) (Action, error) {
	return f(ctx, id)
}

// Result reports the outcome of one background fetch.
type Result struct {
	ID     string
	Action Action
	Err    error
}
