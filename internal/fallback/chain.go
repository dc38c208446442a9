// Package fallback evaluates ordered strategies and returns the first one
// that succeeds, ending in a terminal strategy that cannot fail.
package fallback

import (
	"context"
	"errors"
	"fmt"
)

// Strategy is one attempt in a chain.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Failure records a strategy that did not produce a value.
type Failure struct {
	Strategy string
	Err      error
}

// Outcome is the tagged result of a chain: always a value, plus which
// strategy produced it and what failed before it.
type Outcome[T any] struct {
	Value    T
	Strategy string
	// Index of the winning strategy; len(strategies) means the terminal one.
	Index    int
	Failures []Failure
}

// Degraded reports whether anything other than the first strategy won.
func (o Outcome[T]) Degraded() bool {
	return o.Index > 0
}

// Err joins the errors of every failed strategy, or nil.
func (o Outcome[T]) Err() error {
	errs := make([]error, 0, len(o.Failures))
	for _, f := range o.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Strategy, f.Err))
	}
	return errors.Join(errs...)
}

// Chain is an ordered list of strategies with a guaranteed terminal.
type Chain[T any] struct {
	strategies   []Strategy[T]
	terminalName string
	terminal     func() T
}

// New builds a chain. terminal must not fail; it runs only when every
// strategy has failed.
func New[T any](terminalName string, terminal func() T, strategies ...Strategy[T]) *Chain[T] {
	return &Chain[T]{strategies: strategies, terminalName: terminalName, terminal: terminal}
}

// Run tries each strategy in order.
func (c *Chain[T]) Run(ctx context.Context) Outcome[T] {
	var out Outcome[T]
	for i, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			out.Failures = append(out.Failures, Failure{Strategy: s.Name, Err: err})
			continue
		}
		v, err := attempt(ctx, s)
		if err == nil {
			out.Value, out.Strategy, out.Index = v, s.Name, i
			return out
		}
		out.Failures = append(out.Failures, Failure{Strategy: s.Name, Err: err})
	}
	out.Value, out.Strategy, out.Index = c.terminal(), c.terminalName, len(c.strategies)
	return out
}

// attempt runs s, converting a panic into an error.
func attempt[T any](ctx context.Context, s Strategy[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Run(ctx)
}
