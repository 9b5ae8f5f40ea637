package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const errProviderFmt = "%s: %w"

// Strategy decides which providers a message is handed to.
type Strategy interface {
	Send(ctx context.Context, msg *Message, providers []Provider) (Receipt, error)
}

// Single always uses the first provider.
type Single struct{}

func (Single) Send(ctx context.Context, msg *Message, providers []Provider) (Receipt, error) {
	if len(providers) == 0 {
		return Receipt{}, ErrNoProviders
	}
	return providers[0].Send(ctx, msg)
}

// Failover tries providers in order and stops at the first success.
type Failover struct{}

func (Failover) Send(ctx context.Context, msg *Message, providers []Provider) (Receipt, error) {
	return tryInOrder(ctx, msg, providers, 0)
}

// RoundRobin rotates the starting provider per message and falls through
// to the rest on failure.
type RoundRobin struct {
	mu   sync.Mutex
	next int
}

func (r *RoundRobin) Send(ctx context.Context, msg *Message, providers []Provider) (Receipt, error) {
	if len(providers) == 0 {
		return Receipt{}, ErrNoProviders
	}

	r.mu.Lock()
	start := r.next % len(providers)
	r.next = start + 1
	r.mu.Unlock()

	return tryInOrder(ctx, msg, providers, start)
}

func tryInOrder(ctx context.Context, msg *Message, providers []Provider, start int) (Receipt, error) {
	if len(providers) == 0 {
		return Receipt{}, ErrNoProviders
	}

	errs := []error{ErrAllProvidersDown}
	for i := range providers {
		p := providers[(start+i)%len(providers)]
		receipt, err := p.Send(ctx, msg)
		if err == nil {
			return receipt, nil
		}
		errs = append(errs, fmt.Errorf(errProviderFmt, p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return Receipt{}, errors.Join(errs...)
}
