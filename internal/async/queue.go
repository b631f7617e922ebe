package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")

// Task is a best-effort side effect run outside the request that produced it.
type Task struct {
	ID          uuid.UUID
	Name        string
	SubmittedAt time.Time
	Run         func(ctx context.Context) error
}

// NewTask stamps fn with an id and submission time.
func NewTask(name string, fn func(ctx context.Context) error) Task {
	return Task{ID: uuid.New(), Name: name, SubmittedAt: time.Now(), Run: fn}
}

type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Shutdown(ctx context.Context)
}
