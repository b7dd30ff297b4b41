package geo

import (
	"context"
	"errors"
	"time"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

// DefaultSampleTimeout bounds a single location request.
const DefaultSampleTimeout = 20 * time.Second

var (
	ErrUnavailable       = errors.New("location unavailable")
	ErrTimeout           = errors.New("location request timed out")
	ErrPermissionDenied  = errors.New("location permission denied")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

// Sampler acquires one fresh location fix per call.
type Sampler interface {
	Sample(ctx context.Context) (model.Coordinate, error)
}

// timeoutError maps the state of a request context to a sampler error.
// Cancellation of the parent context is returned as-is so callers can stop.
func timeoutError(parent, reqCtx context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrUnavailable
}
