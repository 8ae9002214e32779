package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/service"
)

// NotificationWorker decouples notification fan-out from the request path.
// Events land on a bounded queue and a small pool drains it; a full queue
// drops the event with a warning rather than blocking the publisher.
type NotificationWorker struct {
	notifications *service.NotificationService
	logger        *zap.Logger
	queue         chan events.Event
	workers       int
	wg            sync.WaitGroup
	cancel        context.CancelFunc
}

// NewNotificationWorker builds a worker pool of the given size.
func NewNotificationWorker(notifications *service.NotificationService, logger *zap.Logger, workers, queueSize int) *NotificationWorker {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 128
	}
	return &NotificationWorker{
		notifications: notifications,
		logger:        logger,
		queue:         make(chan events.Event, queueSize),
		workers:       workers,
	}
}

// Register subscribes the worker to the event types it handles.
func (w *NotificationWorker) Register(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{events.EventTicketCreated, events.EventTicketItemCreated} {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
	}
	return nil
}

// Start launches the pool. Stop drains in-flight work.
func (w *NotificationWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.queue:
			if !ok {
				return
			}
			if err := w.notifications.HandleEvent(ctx, event); err != nil {
				w.logger.Error("notification handling failed",
					zap.String("event_id", event.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// Stop shuts the pool down and waits for workers to exit.
func (w *NotificationWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
