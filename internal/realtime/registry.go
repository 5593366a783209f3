package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	// ErrDuplicateConnection соединение с таким ID уже зарегистрировано
	ErrDuplicateConnection = errors.New("connection already registered")
	// ErrConnectionNotFound соединение не зарегистрировано
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrRegistryClosed реестр остановлен
	ErrRegistryClosed = errors.New("registry is shut down")
)

// Connection снимок состояния соединения
type Connection struct {
	ConnectedAt time.Time
	LastSeen    time.Time
	ID          string
	UserID      string
	Topics      []string
}

type entry struct {
	connectedAt time.Time
	lastSeen    time.Time
	sink        Sink
	topics      map[string]struct{}
	userID      string
}

// subscriber внутреннее представление подписчика для рассылки
type subscriber struct {
	sink   Sink
	id     string
	userID string
}

// Registry хранит живые соединения и их подписки.
// Все изменения выполняются под одной блокировкой, поэтому соединение никогда
// не остается в подписчиках темы после Unregister. Состояние только в памяти:
// после перезапуска процесса все клиенты переподключаются.
type Registry struct {
	conns  map[string]*entry
	topics map[string]map[string]struct{}
	logger *slog.Logger
	now    func() time.Time
	mu     sync.RWMutex
	closed bool
}

// NewRegistry создает пустой реестр.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*entry),
		topics: make(map[string]map[string]struct{}),
		logger: logger,
		now:    time.Now,
	}
}

// Register добавляет соединение с пустым набором тем.
func (r *Registry) Register(id, userID string, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.conns[id]; exists {
		return ErrDuplicateConnection
	}

	now := r.now()
	r.conns[id] = &entry{
		userID:      userID,
		sink:        sink,
		topics:      make(map[string]struct{}),
		connectedAt: now,
		lastSeen:    now,
	}

	r.logger.Debug("Connection registered", "connection_id", id, "user_id", userID)
	return nil
}

// Unregister удаляет соединение из реестра и из всех тем, закрывает его sink.
// Возвращает false, если соединение уже удалено.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	e, ok := r.removeLocked(id)
	r.mu.Unlock()

	if !ok {
		return false
	}

	if err := e.sink.Close(); err != nil {
		r.logger.Debug("Failed to close connection sink", "connection_id", id, "error", err)
	}
	r.logger.Debug("Connection unregistered", "connection_id", id, "user_id", e.userID)
	return true
}

func (r *Registry) removeLocked(id string) (*entry, bool) {
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}

	for topic := range e.topics {
		if subs, exists := r.topics[topic]; exists {
			delete(subs, id)
			if len(subs) == 0 {
				delete(r.topics, topic)
			}
		}
	}
	delete(r.conns, id)
	return e, true
}

// Join подписывает соединение на тему. Повторная подписка ничего не меняет.
func (r *Registry) Join(id, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return ErrConnectionNotFound
	}

	e.topics[topic] = struct{}{}
	subs, exists := r.topics[topic]
	if !exists {
		subs = make(map[string]struct{})
		r.topics[topic] = subs
	}
	subs[id] = struct{}{}
	return nil
}

// Leave отписывает соединение от темы. Отписка от чужой темы ничего не меняет.
func (r *Registry) Leave(id, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return ErrConnectionNotFound
	}

	delete(e.topics, topic)
	if subs, exists := r.topics[topic]; exists {
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.topics, topic)
		}
	}
	return nil
}

// SubscribersOf возвращает отсортированную копию списка подписчиков темы.
func (r *Registry) SubscribersOf(topic string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.topics[topic]))
	for id := range r.topics[topic] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// subscribers возвращает подписчиков темы вместе с их sink для рассылки.
func (r *Registry) subscribers(topic string) []subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]subscriber, 0, len(r.topics[topic]))
	for id := range r.topics[topic] {
		e := r.conns[id]
		subs = append(subs, subscriber{id: id, userID: e.userID, sink: e.sink})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

// Lookup возвращает снимок соединения.
func (r *Registry) Lookup(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}

	topics := make([]string, 0, len(e.topics))
	for topic := range e.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	return Connection{
		ID:          id,
		UserID:      e.userID,
		Topics:      topics,
		ConnectedAt: e.connectedAt,
		LastSeen:    e.lastSeen,
	}, true
}

// Touch отмечает активность соединения (входящий кадр или pong).
func (r *Registry) Touch(id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return ErrConnectionNotFound
	}
	if now.After(e.lastSeen) {
		e.lastSeen = now
	}
	return nil
}

// EvictIdle удаляет соединения без активности дольше timeout.
func (r *Registry) EvictIdle(now time.Time, timeout time.Duration) []string {
	r.mu.Lock()
	var evicted []*entry
	var ids []string
	for id, e := range r.conns {
		if now.Sub(e.lastSeen) > timeout {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		if e, ok := r.removeLocked(id); ok {
			evicted = append(evicted, e)
		}
	}
	r.mu.Unlock()

	for i, e := range evicted {
		_ = e.sink.Close()
		r.logger.Info("Idle connection evicted", "connection_id", ids[i], "user_id", e.userID)
	}

	sort.Strings(ids)
	return ids
}

// RunJanitor периодически удаляет неактивные соединения до отмены ctx.
func (r *Registry) RunJanitor(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle(r.now(), timeout)
		}
	}
}

// Len возвращает количество зарегистрированных соединений.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// Shutdown закрывает все соединения и запрещает новые регистрации.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	conns := r.conns
	r.conns = make(map[string]*entry)
	r.topics = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, e := range conns {
		_ = e.sink.Close()
	}
	r.logger.Info("Registry shut down", "connections", len(conns))
}
