package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// RetryPolicy bounds the retries of transient failures at the store boundary.
// Services never retry; once a policy gives up the error surfaces as
// domain.ErrUnavailable.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Backoff is multiplied by the attempt number between tries.
	Backoff time.Duration

	// IsTransient classifies driver errors.
	IsTransient func(error) bool
}

// Do runs fn until it succeeds, fails permanently, or the attempts run out.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || p.IsTransient == nil || !p.IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, ctx.Err())
		case <-time.After(p.Backoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
