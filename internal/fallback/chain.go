// Package fallback tries an ordered list of candidates until one succeeds.
//
// A Chain remembers the candidate that last succeeded and tries it first on
// the next call, so a working model or endpoint is not re-probed behind
// failing ones every time.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrNoCandidates = errors.New("fallback: no candidates")

// Candidate is one option of a chain. Name is used in errors and logs.
type Candidate[C any] struct {
	Name  string
	Value C
}

// Chain is safe for concurrent use.
type Chain[C any] struct {
	mu         sync.Mutex
	candidates []Candidate[C]
	preferred  int
	onFailure  func(name string, err error)
}

type Option[C any] func(*Chain[C])

// WithFailureHook is called for every candidate that fails.
func WithFailureHook[C any](fn func(name string, err error)) Option[C] {
	return func(c *Chain[C]) { c.onFailure = fn }
}

func New[C any](candidates []Candidate[C], opts ...Option[C]) *Chain[C] {
	c := &Chain[C]{candidates: append([]Candidate[C](nil), candidates...)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Preferred returns the name of the candidate tried first.
func (c *Chain[C]) Preferred() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.candidates) == 0 {
		return ""
	}
	return c.candidates[c.preferred].Name
}

// Do runs fn against each candidate, starting with the preferred one and
// then in declaration order. The first success wins and becomes preferred.
// When every candidate fails the joined errors are returned. A cancelled
// context stops the chain.
func Do[C, R any](ctx context.Context, c *Chain[C], fn func(context.Context, C) (R, error)) (R, error) {
	var zero R

	order := c.order()
	if len(order) == 0 {
		return zero, ErrNoCandidates
	}

	var errs []error
	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		cand := c.candidates[idx]
		res, err := fn(ctx, cand.Value)
		if err == nil {
			c.setPreferred(idx)
			return res, nil
		}
		if c.onFailure != nil {
			c.onFailure(cand.Name, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", cand.Name, err))
	}
	return zero, errors.Join(errs...)
}

func (c *Chain[C]) order() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.candidates) == 0 {
		return nil
	}
	order := make([]int, 0, len(c.candidates))
	order = append(order, c.preferred)
	for i := range c.candidates {
		if i != c.preferred {
			order = append(order, i)
		}
	}
	return order
}

func (c *Chain[C]) setPreferred(idx int) {
	c.mu.Lock()
	c.preferred = idx
	c.mu.Unlock()
}
