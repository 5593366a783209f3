// Package ratelimit реализует ограничение частоты запросов по скользящему окну
// для пары (идентичность, класс эндпоинта).
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Class класс эндпоинта со своим лимитом
type Class string

const (
	ClassAuth    Class = "auth"
	ClassMessage Class = "message"
	ClassUpload  Class = "upload"
	ClassSearch  Class = "search"
	ClassGeneric Class = "generic"
)

// Classes все известные классы
var Classes = []Class{ClassAuth, ClassMessage, ClassUpload, ClassSearch, ClassGeneric}

// Limit максимум Max запросов за любое окно длиной Window
type Limit struct {
	Window time.Duration
	Max    int
}

// Valid проверяет корректность лимита.
func (l Limit) Valid() bool {
	return l.Window > 0 && l.Max > 0
}

// DefaultLimits лимиты по умолчанию
func DefaultLimits() map[Class]Limit {
	return map[Class]Limit{
		ClassAuth:    {Window: time.Minute, Max: 10},
		ClassMessage: {Window: time.Minute, Max: 60},
		ClassUpload:  {Window: time.Minute, Max: 10},
		ClassSearch:  {Window: time.Minute, Max: 30},
		ClassGeneric: {Window: time.Minute, Max: 120},
	}
}

// Result ответ хранилища на одну проверку.
type Result struct {
	Oldest  time.Time // самая старая метка в окне (для расчета RetryAfter)
	Count   int       // количество меток в окне после проверки
	Allowed bool
}

// Store хранит окна и выполняет проверку атомарно для ключа.
type Store interface {
	// Admit удаляет метки t <= now-window, и если осталось меньше limit.Max,
	// записывает now. Чтение и запись выполняются как одна операция.
	Admit(ctx context.Context, key string, limit Limit, now time.Time) (Result, error)
}

// Decision решение ограничителя
type Decision struct {
	ResetAt    time.Time     // момент, когда освободится место в окне
	Limit      int           // максимальное количество запросов за окно
	Remaining  int           // сколько запросов еще можно сделать
	RetryAfter time.Duration // > 0 только при отказе
	Allowed    bool
	FailOpen   bool // хранилище недоступно, запрос пропущен без учета
}

// Limiter ограничитель частоты запросов
type Limiter struct {
	store  Store
	limits map[Class]Limit
	logger *slog.Logger
}

// New создает ограничитель. Классы без лимита используют лимит ClassGeneric.
func New(store Store, limits map[Class]Limit, logger *slog.Logger) (*Limiter, error) {
	merged := DefaultLimits()
	for class, limit := range limits {
		if !limit.Valid() {
			return nil, fmt.Errorf("invalid limit for class %q: window=%s max=%d", class, limit.Window, limit.Max)
		}
		merged[class] = limit
	}

	return &Limiter{
		store:  store,
		limits: merged,
		logger: logger,
	}, nil
}

// LimitFor возвращает лимит класса.
func (l *Limiter) LimitFor(class Class) Limit {
	if limit, ok := l.limits[class]; ok {
		return limit
	}
	return l.limits[ClassGeneric]
}

// Key ключ окна для пары (идентичность, класс)
func Key(identity string, class Class) string {
	return identity + "|" + string(class)
}

// Admit проверяет и учитывает запрос identity к эндпоинту класса class в момент now.
// Ошибка хранилища не блокирует запрос: возвращается разрешение с FailOpen.
func (l *Limiter) Admit(ctx context.Context, identity string, class Class, now time.Time) Decision {
	limit := l.LimitFor(class)

	res, err := l.store.Admit(ctx, Key(identity, class), limit, now)
	if err != nil {
		l.logger.Warn("Rate limit store unavailable, admitting request",
			"identity", identity,
			"class", string(class),
			"fail_open", true,
			"error", err,
		)
		return Decision{
			Allowed:   true,
			FailOpen:  true,
			Limit:     limit.Max,
			Remaining: limit.Max,
			ResetAt:   now.Add(limit.Window),
		}
	}

	decision := Decision{
		Allowed:   res.Allowed,
		Limit:     limit.Max,
		Remaining: limit.Max - res.Count,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}

	if res.Oldest.IsZero() {
		decision.ResetAt = now.Add(limit.Window)
	} else {
		decision.ResetAt = res.Oldest.Add(limit.Window)
	}

	if !res.Allowed {
		decision.RetryAfter = decision.ResetAt.Sub(now)
		// метки t <= now-window уже удалены, поэтому oldest+window > now
		if decision.RetryAfter <= 0 {
			decision.RetryAfter = time.Millisecond
		}
	}

	return decision
}
