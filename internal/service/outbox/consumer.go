package outbox

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/metrics"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/service/notify"
)

type Consumer struct {
	countWorkers int

	// Sink may be unavailable for a while
	// If delivery failed, workers wait until the time is up
	waitUntil  atomic.Int64
	retryDelay time.Duration

	repo   notificationRepo
	sender notify.Sender
	logger logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.Notification) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < c.countWorkers; i++ {
		wg.Add(1)
		go func() {
			c.worker(ctx, in)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.Notification) {
	for {
		// Wait until sink retry delay passed or context is done
		waitUntil := time.UnixMilli(c.waitUntil.Load())
		if waitUntil.After(time.Now()) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(waitUntil)):
				continue
			}
		}

		select {
		case <-ctx.Done():
			return

		case n, ok := <-in:
			if !ok {
				c.logger.Debug("Consumer worker stopped, input channel closed")
				return
			}

			err := c.sender.Send(ctx, n)
			if err != nil {
				// Stays claimed and is delivered again after reclaim interval
				c.logger.Error("Failed to deliver notification", "error", err, "notification_id", n.ID)
				metrics.RecordNotification(n.Kind, "error")
				c.waitUntil.Store(time.Now().Add(c.retryDelay).UnixMilli())
				continue
			}

			err = c.repo.MarkSent(ctx, n.ID)
			if err != nil {
				c.logger.Error("Failed to mark notification sent", "error", err, "notification_id", n.ID)
				continue
			}

			metrics.RecordNotification(n.Kind, "sent")
		}
	}
}
