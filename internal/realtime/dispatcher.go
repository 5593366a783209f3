package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const topicStripes = 64

// Dispatcher рассылает события подписчикам темы.
//
// Доставка по принципу "отправил и забыл" (at-least-once на уровне клиента):
// пропущенные события клиент добирает через REST после переподключения.
// Рассылки в одну тему сериализуются, поэтому каждый подписчик видит события
// темы в порядке вызовов Publish.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	stripes  [topicStripes]sync.Mutex
}

// NewDispatcher создает рассылку поверх реестра.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// Publish отправляет событие всем подписчикам темы на момент вызова.
// Инициатор (opts.ExcludeConnection) пропускается; событие прочтения не
// отправляется ни одному соединению пользователя-инициатора.
// Подписчик, которому не удалось отправить кадр, отключается.
func (d *Dispatcher) Publish(ctx context.Context, ev Event, opts PublishOptions) DeliveryReport {
	var report DeliveryReport
	if err := ctx.Err(); err != nil {
		d.logger.Debug("Publish skipped, context done", "topic", ev.Topic, "error", err)
		return report
	}

	stripe := &d.stripes[xxhash.Sum64String(ev.Topic)%topicStripes]
	stripe.Lock()
	defer stripe.Unlock()

	for _, sub := range d.registry.subscribers(ev.Topic) {
		if sub.id == opts.ExcludeConnection {
			continue
		}
		if ev.Kind == KindRead && sub.userID == ev.OriginatorID {
			continue
		}

		report.Attempted = append(report.Attempted, sub.id)

		if err := sub.sink.Send(ev.Payload); err != nil {
			report.Dropped = append(report.Dropped, sub.id)
			d.registry.Unregister(sub.id)
			d.logger.Warn("Subscriber dropped",
				"connection_id", sub.id,
				"user_id", sub.userID,
				"topic", ev.Topic,
				"error", err,
			)
			continue
		}
		report.Succeeded = append(report.Succeeded, sub.id)
	}

	d.logger.Debug("Event published",
		"topic", ev.Topic,
		"kind", string(ev.Kind),
		"attempted", len(report.Attempted),
		"dropped", len(report.Dropped),
	)

	return report
}
