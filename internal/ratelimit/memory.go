package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 32

// MemoryStore хранит окна в памяти процесса.
// Ключи распределены по шардам с отдельными мьютексами, чтобы проверки разных
// ключей не конкурировали за одну блокировку.
type MemoryStore struct {
	stopC  chan struct{}
	shards []*shard
	// idle время без запросов, после которого окно удаляется
	idle     time.Duration
	stopOnce sync.Once
}

type shard struct {
	windows map[string]*window
	mu      sync.Mutex
}

// window упорядоченные метки запросов одного ключа
type window struct {
	lastSeen time.Time
	stamps   []time.Time
}

// NewMemoryStore создает хранилище и запускает фоновую очистку неактивных окон.
// idle - период неактивности, после которого ключ удаляется.
func NewMemoryStore(idle time.Duration) *MemoryStore {
	s := &MemoryStore{
		shards: make([]*shard, defaultShards),
		idle:   idle,
		stopC:  make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{windows: make(map[string]*window)}
	}

	// Запускаем периодическую очистку неактивных окон
	go s.cleanup()

	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// Admit реализует Store.
func (s *MemoryStore) Admit(_ context.Context, key string, limit Limit, now time.Time) (Result, error) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.windows[key]
	if !ok {
		w = &window{}
		sh.windows[key] = w
	}
	w.lastSeen = now

	// Отбрасываем метки t <= now-window
	cutoff := now.Add(-limit.Window)
	expired := sort.Search(len(w.stamps), func(i int) bool { return w.stamps[i].After(cutoff) })
	if expired > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[expired:]...)
	}

	res := Result{}
	if len(w.stamps) < limit.Max {
		// Вызовы с немонотонным now вставляются с сохранением порядка
		pos := sort.Search(len(w.stamps), func(i int) bool { return w.stamps[i].After(now) })
		w.stamps = append(w.stamps, time.Time{})
		copy(w.stamps[pos+1:], w.stamps[pos:])
		w.stamps[pos] = now
		res.Allowed = true
	}

	res.Count = len(w.stamps)
	if len(w.stamps) > 0 {
		res.Oldest = w.stamps[0]
	}

	return res, nil
}

// cleanup периодически удаляет неактивные окна для экономии памяти
func (s *MemoryStore) cleanup() {
	interval := s.idle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.Sweep(now)
		case <-s.stopC:
			return
		}
	}
}

// Sweep удаляет окна, к которым не обращались дольше периода неактивности.
// Возвращает количество удаленных ключей.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, w := range sh.windows {
			if now.Sub(w.lastSeen) > s.idle {
				delete(sh.windows, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len возвращает количество отслеживаемых ключей.
func (s *MemoryStore) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.windows)
		sh.mu.Unlock()
	}
	return total
}

// Stop останавливает фоновую очистку
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopC)
	})
}
