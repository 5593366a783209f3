package crdt

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Stamp идентифицирует операцию документа: логическое время Лампорта плюс узел-автор.
// Пара (Counter, NodeID) глобально уникальна и задает полный порядок операций.
type Stamp struct {
	NodeID  string `json:"node"`    // идентификатор реплики (клиента или сервера)
	Counter int64  `json:"counter"` // значение часов Лампорта в момент создания операции
}

// Less сравнивает метки: сначала Counter, при равенстве NodeID (лексикографически).
func (s Stamp) Less(other Stamp) bool {
	if s.Counter != other.Counter {
		return s.Counter < other.Counter
	}
	return s.NodeID < other.NodeID
}

// IsZero возвращает true для незаполненной метки.
func (s Stamp) IsZero() bool {
	return s.Counter == 0 && s.NodeID == ""
}

func (s Stamp) String() string {
	return fmt.Sprintf("%d@%s", s.Counter, s.NodeID)
}

// LamportClock представляет логические часы Лампорта одной реплики.
// Используется Editor'ом для выдачи меток локальным изменениям.
type LamportClock struct {
	nodeID  string
	counter int64
	mu      sync.Mutex
}

// NewLamportClock создает часы со случайным идентификатором узла (UUID).
func NewLamportClock() *LamportClock {
	return &LamportClock{
		nodeID: uuid.New().String(),
	}
}

// NewLamportClockWithNodeID создает часы с заданным идентификатором узла.
// Клиент хранит свой nodeID в локальной БД и восстанавливает его при старте.
func NewLamportClockWithNodeID(nodeID string) *LamportClock {
	return &LamportClock{
		nodeID: nodeID,
	}
}

// Tick увеличивает счетчик и возвращает метку для нового локального события.
func (lc *LamportClock) Tick() Stamp {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return Stamp{NodeID: lc.nodeID, Counter: lc.counter}
}

// Observe учитывает удаленное время: counter = max(counter, remote).
// Следующий Tick гарантированно будет больше любой увиденной метки.
func (lc *LamportClock) Observe(remote int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if remote > lc.counter {
		lc.counter = remote
	}
}

// GetTimestamp возвращает текущее значение счетчика без изменения.
func (lc *LamportClock) GetTimestamp() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.counter
}

// GetNodeID возвращает идентификатор узла.
func (lc *LamportClock) GetNodeID() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.nodeID
}

// SetTimestamp восстанавливает счетчик (например, после перезапуска клиента).
func (lc *LamportClock) SetTimestamp(timestamp int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter = timestamp
}
