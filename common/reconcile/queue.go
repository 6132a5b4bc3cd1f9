package reconcile

import (
	"context"
	"errors"

	"github.com/pledgekit/patronage/common/event"
)

// ErrQueueClosed is returned by Submit after the queue worker has stopped.
var ErrQueueClosed = errors.New("reconcile queue closed")

// Applier applies one normalized event. Satisfied by *Reconciler.
type Applier interface {
	Apply(ctx context.Context, ev *event.PatronEvent) error
}

type task struct {
	ev    *event.PatronEvent
	reply chan error
}

// Queue serializes reconciliation through one drain worker. The store has no
// concurrency primitive, so two concurrent read-modify-writes can silently
// drop each other's keys; funneling every apply through a single worker
// restores a total order. Submitters block until their event is applied so
// store failures still surface on the originating request.
type Queue struct {
	tasks   chan task
	applier Applier
	log     Logger
	done    chan struct{}
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(applier Applier, size int, log Logger) *Queue {
	return &Queue{
		tasks:   make(chan task, size),
		applier: applier,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start launches the drain worker. It runs until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		defer close(q.done)
		q.log.Info("reconcile worker started")
		for {
			select {
			case <-ctx.Done():
				q.log.Info("reconcile worker stopping")
				return
			case t := <-q.tasks:
				t.reply <- q.applier.Apply(ctx, t.ev)
			}
		}
	}()
}

// Submit enqueues an event and waits for the worker to apply it. The reply
// channel is buffered so the worker never blocks on a submitter that already
// gave up on its ctx.
func (q *Queue) Submit(ctx context.Context, ev *event.PatronEvent) error {
	t := task{ev: ev, reply: make(chan error, 1)}

	select {
	case q.tasks <- t:
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.reply:
		return err
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
