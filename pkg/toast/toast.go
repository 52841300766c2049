// Package toast delivers transient cart messages to the shopper.
package toast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"rocketshoes/pkg/cart"
	"rocketshoes/pkg/logger"
)

// Toast is one message waiting to be shown.
type Toast struct {
	ID      uuid.UUID  `json:"id"`
	Level   cart.Level `json:"level"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// Queue keeps the most recent toasts until they are drained. Once full, the
// oldest toast is dropped.
type Queue struct {
	mu     sync.Mutex
	limit  int
	toasts []Toast
	now    func() time.Time
}

// NewQueue creates a Queue holding at most limit toasts.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 1
	}
	return &Queue{limit: limit, now: time.Now}
}

// Notify implements cart.Notifier.
func (q *Queue) Notify(ctx context.Context, level cart.Level, message string) {
	t := Toast{ID: uuid.New(), Level: level, Message: message, At: q.now()}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.toasts) == q.limit {
		q.toasts = q.toasts[1:]
	}
	q.toasts = append(q.toasts, t)
}

// Drain returns the queued toasts, oldest first, and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	if out == nil {
		out = []Toast{}
	}
	return out
}

// Log returns a notifier that writes each toast to log.
func Log(log *logger.Logger) cart.Notifier {
	return cart.NotifierFunc(func(ctx context.Context, level cart.Level, message string) {
		log.Info(ctx, "toast", "level", level, "message", message)
	})
}

// Multi fans a notification out to every notifier.
func Multi(ns ...cart.Notifier) cart.Notifier {
	return cart.NotifierFunc(func(ctx context.Context, level cart.Level, message string) {
		for _, n := range ns {
			n.Notify(ctx, level, message)
		}
	})
}
