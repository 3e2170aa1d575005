package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/logger"
)

// Dispatcher sends events in the background after the caller's state change has committed.
// A failed send is logged and dropped.
type Dispatcher struct {
	sender  Sender
	log     *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, log *logger.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sender: sender, log: log, timeout: timeout}
}

func (d *Dispatcher) Notify(ev Event) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// not tied to the request: the response may already be written
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, ev); err != nil {
			d.log.Error("notification send failed",
				"event_id", ev.ID,
				"event_type", ev.Type,
				"recipient_id", ev.RecipientID,
				"error", err,
			)
			return
		}
		d.log.Debug("notification sent", "event_id", ev.ID, "event_type", ev.Type, "recipient_id", ev.RecipientID)
	}()
}

// Wait blocks until every in-flight send has finished. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
