package persist

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const shutdownFlushTimeout = 5 * time.Second

type op struct {
	value  string
	remove bool
}

// FailureRecorder counts writes the store rejected.
type FailureRecorder interface {
	RecordPersistFailure(key string)
}

// WriteBehind queues writes and applies them to a Store in the background.
// Pending writes are coalesced per key so only the latest value of each key
// is written. A failed write stays queued until the next drain unless a newer
// value for the same key arrived in the meantime.
type WriteBehind struct {
	store    Store
	logger   *zap.Logger
	failures FailureRecorder

	mu      sync.Mutex
	pending map[string]op
	notify  chan struct{}

	// applyMu serializes drains so writes to one key land in call order.
	applyMu sync.Mutex
}

func NewWriteBehind(store Store, logger *zap.Logger, failures FailureRecorder) *WriteBehind {
	return &WriteBehind{
		store:    store,
		logger:   logger,
		failures: failures,
		pending:  make(map[string]op),
		notify:   make(chan struct{}, 1),
	}
}

func (w *WriteBehind) Set(key, value string) {
	w.enqueue(key, op{value: value})
}

func (w *WriteBehind) Remove(key string) {
	w.enqueue(key, op{remove: true})
}

func (w *WriteBehind) enqueue(key string, o op) {
	w.mu.Lock()
	w.pending[key] = o
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of keys waiting to be written.
func (w *WriteBehind) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run applies queued writes until ctx is cancelled, then makes a final
// attempt to flush what is left.
func (w *WriteBehind) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			defer cancel()
			if failed := w.Flush(flushCtx); failed > 0 {
				w.logger.Warn("writes left unflushed at shutdown", zap.Int("keys", failed))
			}
			return nil
		case <-w.notify:
			w.Flush(ctx)
		}
	}
}

// Flush synchronously applies every queued write and returns how many keys
// could not be written.
func (w *WriteBehind) Flush(ctx context.Context) int {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]op)
	w.mu.Unlock()

	keys := make([]string, 0, len(batch))
	for key := range batch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	failed := 0
	for _, key := range keys {
		o := batch[key]
		var err error
		if o.remove {
			err = w.store.Remove(ctx, key)
		} else {
			err = w.store.Set(ctx, key, o.value)
		}
		if err == nil {
			continue
		}

		failed++
		w.logger.Error("persist write failed", zap.String("key", key), zap.Error(err))
		if w.failures != nil {
			w.failures.RecordPersistFailure(key)
		}

		w.mu.Lock()
		if _, newer := w.pending[key]; !newer {
			w.pending[key] = o
		}
		w.mu.Unlock()
	}
	return failed
}
