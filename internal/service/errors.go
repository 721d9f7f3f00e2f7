// Package service provides business logic services for Digital Galaxy.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// ErrInternalError marks failures that are not part of the domain error
// taxonomy. Handlers report them as 500 without details.
var ErrInternalError = errors.New("internal server error")

// Pagination defaults.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// internal passes domain errors and context errors through unchanged and
// wraps everything else in ErrInternalError.
func internal(err error) error {
	if err == nil {
		return nil
	}
	if domain.Kind(err) != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}

// page clamps a requested page size and offset.
func page(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
