package crdt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDocumentMismatch возвращается при попытке слить разные документы
	ErrDocumentMismatch = errors.New("cannot merge documents with different ids")

	// ErrInvalidOp возвращается для операции с некорректными полями
	ErrInvalidOp = errors.New("invalid document operation")
)

// OpKind тип операции документа
type OpKind string

const (
	// OpSet записывает значение поля-регистра (LWW)
	OpSet OpKind = "set"
	// OpAdd добавляет элемент в поле-множество
	OpAdd OpKind = "add"
	// OpRemove удаляет наблюдаемые добавления элемента из поля-множества
	OpRemove OpKind = "remove"
)

// Op представляет одну операцию в истории документа.
// Операции неизменяемы: история только растет.
type Op struct {
	ID       Stamp           `json:"id"`
	Kind     OpKind          `json:"kind"`
	Field    string          `json:"field"`
	Element  string          `json:"element,omitempty"`  // для add/remove
	Value    json.RawMessage `json:"value,omitempty"`    // для set
	Observed []Stamp         `json:"observed,omitempty"` // для remove: метки удаляемых add
}

func (op Op) validate() error {
	if op.ID.NodeID == "" || op.ID.Counter <= 0 {
		return fmt.Errorf("%w: bad stamp %s", ErrInvalidOp, op.ID)
	}
	if op.Field == "" {
		return fmt.Errorf("%w: empty field in %s", ErrInvalidOp, op.ID)
	}
	switch op.Kind {
	case OpSet:
		if len(op.Value) == 0 {
			return fmt.Errorf("%w: set without value in %s", ErrInvalidOp, op.ID)
		}
	case OpAdd, OpRemove:
		if op.Element == "" {
			return fmt.Errorf("%w: empty element in %s", ErrInvalidOp, op.ID)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOp, op.Kind)
	}
	return nil
}

// canonical возвращает детерминированное представление операции.
func (op Op) canonical() []byte {
	data, _ := json.Marshal(op)
	return data
}

// Document представляет CRDT документ (например, задачу) как множество операций.
// Текущее значение материализуется из истории, поэтому слияние двух реплик
// сводится к объединению множеств операций.
type Document struct {
	ops map[Stamp]Op
	ID  string
}

// NewDocument создает пустой документ.
func NewDocument(id string) *Document {
	return &Document{
		ID:  id,
		ops: make(map[Stamp]Op),
	}
}

// Clone создает глубокую копию документа.
func (d *Document) Clone() *Document {
	clone := NewDocument(d.ID)
	for id, op := range d.ops {
		clone.ops[id] = cloneOp(op)
	}
	return clone
}

func cloneOp(op Op) Op {
	c := op
	if op.Value != nil {
		c.Value = append(json.RawMessage(nil), op.Value...)
	}
	if op.Observed != nil {
		c.Observed = append([]Stamp(nil), op.Observed...)
	}
	return c
}

// insert добавляет операцию. Если операция с такой меткой уже есть и отличается
// (повреждённая реплика), выигрывает канонически большая - так слияние остается коммутативным.
func (d *Document) insert(op Op) {
	existing, ok := d.ops[op.ID]
	if ok && bytes.Compare(existing.canonical(), op.canonical()) >= 0 {
		return
	}
	d.ops[op.ID] = cloneOp(op)
}

// Len возвращает количество операций в истории.
func (d *Document) Len() int {
	return len(d.ops)
}

// Ops возвращает историю в порядке меток.
func (d *Document) Ops() []Op {
	result := make([]Op, 0, len(d.ops))
	for _, op := range d.ops {
		result = append(result, cloneOp(op))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.Less(result[j].ID) })
	return result
}

// MaxCounter возвращает максимальное значение часов Лампорта среди операций.
func (d *Document) MaxCounter() int64 {
	var maxCounter int64
	for id := range d.ops {
		if id.Counter > maxCounter {
			maxCounter = id.Counter
		}
	}
	return maxCounter
}

// VersionVector возвращает для каждого узла максимальный счетчик его операций.
func (d *Document) VersionVector() map[string]int64 {
	vv := make(map[string]int64)
	for id := range d.ops {
		if id.Counter > vv[id.NodeID] {
			vv[id.NodeID] = id.Counter
		}
	}
	return vv
}

// Covers проверяет, что документ содержит все операции other.
func (d *Document) Covers(other *Document) bool {
	if other == nil {
		return true
	}
	for id, op := range other.ops {
		mine, ok := d.ops[id]
		if !ok || !bytes.Equal(mine.canonical(), op.canonical()) {
			return false
		}
	}
	return true
}

// Missing возвращает операции документа, отсутствующие в other.
func (d *Document) Missing(other *Document) []Op {
	var result []Op
	for id, op := range d.ops {
		if other != nil {
			if _, ok := other.ops[id]; ok {
				continue
			}
		}
		result = append(result, cloneOp(op))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.Less(result[j].ID) })
	return result
}

// Equal сравнивает документы по идентификатору и истории.
func (d *Document) Equal(other *Document) bool {
	if other == nil || d.ID != other.ID || len(d.ops) != len(other.ops) {
		return false
	}
	return d.Covers(other)
}

// Merge объединяет два документа.
// Операция коммутативна, ассоциативна и идемпотентна: результат зависит
// только от объединения историй, а не от порядка слияния.
// Аргументы не изменяются.
func Merge(local, remote *Document) (*Document, error) {
	switch {
	case local == nil && remote == nil:
		return nil, fmt.Errorf("%w: both documents are nil", ErrDocumentMismatch)
	case local == nil:
		return remote.Clone(), nil
	case remote == nil:
		return local.Clone(), nil
	}

	if local.ID != remote.ID {
		return nil, fmt.Errorf("%w: %q vs %q", ErrDocumentMismatch, local.ID, remote.ID)
	}

	merged := local.Clone()
	for _, op := range remote.ops {
		merged.insert(op)
	}

	return merged, nil
}

// documentJSON формат сериализации документа
type documentJSON struct {
	ID    string `json:"id"`
	Ops   []Op   `json:"ops"`
	State *State `json:"state,omitempty"`
}

// MarshalJSON сериализует историю и материализованное состояние.
func (d *Document) MarshalJSON() ([]byte, error) {
	state := d.State()
	return json.Marshal(documentJSON{
		ID:    d.ID,
		Ops:   d.Ops(),
		State: &state,
	})
}

// UnmarshalJSON восстанавливает документ из истории; поле state игнорируется
// и всегда пересчитывается.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	doc := NewDocument(raw.ID)
	for _, op := range raw.Ops {
		if err := op.validate(); err != nil {
			return err
		}
		sort.Slice(op.Observed, func(i, j int) bool { return op.Observed[i].Less(op.Observed[j]) })
		doc.insert(op)
	}

	*d = *doc
	return nil
}
