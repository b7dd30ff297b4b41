package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

// PushSampler serves fixes that the device pushes to the API. A Sample call
// only accepts a fix pushed after the call started, so a cached position is
// never reused.
type PushSampler struct {
	mu      sync.Mutex
	waiters map[chan model.Coordinate]struct{}
	timeout time.Duration
}

func NewPushSampler(timeout time.Duration) *PushSampler {
	if timeout <= 0 {
		timeout = DefaultSampleTimeout
	}
	return &PushSampler{
		waiters: make(map[chan model.Coordinate]struct{}),
		timeout: timeout,
	}
}

// Push hands a fix to every pending Sample call and reports how many received it.
func (s *PushSampler) Push(c model.Coordinate) (int, error) {
	if !ValidCoordinate(c) {
		return 0, fmt.Errorf("push fix: %w", ErrInvalidCoordinate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delivered := 0
	for ch := range s.waiters {
		select {
		case ch <- c:
			delivered++
		default:
		}
		delete(s.waiters, ch)
	}
	return delivered, nil
}

func (s *PushSampler) Sample(ctx context.Context) (model.Coordinate, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ch := make(chan model.Coordinate, 1)
	s.mu.Lock()
	s.waiters[ch] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.waiters, ch)
		s.mu.Unlock()
	}()

	select {
	case c := <-ch:
		return c, nil
	case <-reqCtx.Done():
		return model.Coordinate{}, timeoutError(ctx, reqCtx)
	}
}

// Pending returns the number of Sample calls waiting for a fix.
func (s *PushSampler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}
