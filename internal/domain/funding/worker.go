package funding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quickbills/billpay-api/internal/pkg/paystack"
	"github.com/quickbills/billpay-api/internal/pkg/queue"
)

// Worker applies queued gateway events.
type Worker struct {
	consumer *queue.Consumer
}

func NewWorker(cfg queue.Config, reconciler *Reconciler) *Worker {
	return &Worker{consumer: queue.NewConsumer(cfg, Handle(reconciler))}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.consumer.Run(ctx)
}

// Handle adapts the reconciler to a queue handler. Events that can never
// succeed are marked permanent so the broker drops them.
func Handle(reconciler *Reconciler) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		var event paystack.Event
		if err := json.Unmarshal(body, &event); err != nil {
			return queue.Permanent(fmt.Errorf("decode event: %w", err))
		}

		err := reconciler.HandleEvent(ctx, event)
		if err != nil && IsPermanent(err) {
			return queue.Permanent(err)
		}
		return err
	}
}
