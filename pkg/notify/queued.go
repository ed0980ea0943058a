package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-attendance/pkg/jobs"
)

// QueueOptions configures a QueuedNotifier.
type QueueOptions struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnDrop observes messages that exhausted their retries or were still
	// pending at Stop.
	OnDrop func(id string, err error)
}

// QueuedNotifier hands messages to a worker pool that retries the wrapped
// transport. Notify succeeds once the message is accepted by the queue.
type QueuedNotifier struct {
	next  Notifier
	queue *jobs.Queue[Message]
}

// NewQueuedNotifier wraps next. Call Start before use.
func NewQueuedNotifier(next Notifier, opts QueueOptions) *QueuedNotifier {
	n := &QueuedNotifier{next: next}
	n.queue = jobs.New[Message]("notify", n.deliver, jobs.Config{
		Workers:    opts.Workers,
		MaxRetries: opts.Retries,
		RetryDelay: opts.RetryDelay,
		Logger:     opts.Logger,
		OnDrop:     opts.OnDrop,
	})
	return n
}

// Start launches the delivery workers; Notify fails until it is called.
func (n *QueuedNotifier) Start(ctx context.Context) { n.queue.Start(ctx) }

// Stop waits for in-flight deliveries, then drops messages still queued or
// waiting on a retry. Each drop is logged and passed to OnDrop.
func (n *QueuedNotifier) Stop() { n.queue.Stop() }

// Notify enqueues msg for delivery.
func (n *QueuedNotifier) Notify(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	return n.queue.Enqueue(uuid.NewString(), msg)
}

func (n *QueuedNotifier) deliver(ctx context.Context, msg Message) error {
	return n.next.Notify(ctx, msg)
}
