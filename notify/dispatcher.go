package notify

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/snap-point/activity-engine/logger"
)

// Dispatcher sends notifications in the background. Delivery failures are logged and
// never reach the caller.
type Dispatcher struct {
	notifier Notifier
	pool     pond.Pool
	timeout  time.Duration
	log      *logger.Logger
}

func NewDispatcher(notifier Notifier, cfg Config, baseLog *logger.Logger) *Dispatcher {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		pool:     pond.NewPool(size),
		timeout:  timeout,
		log:      baseLog.With("service", "NotificationDispatcher"),
	}
}

func (d *Dispatcher) Dispatch(n Notification) {
	if d == nil || len(n.RecipientIDs) == 0 {
		return
	}
	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.notifier.Notify(ctx, n); err != nil {
			d.log.Warn("notification failed", "type", n.Type, "notification_id", n.ID, "error", err)
		}
	})
}

// Close waits for queued notifications to be delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.pool.StopAndWait()
}
