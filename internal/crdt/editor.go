package crdt

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyMutation возвращается для изменения без поля
var ErrEmptyMutation = errors.New("mutation field is empty")

// MutationKind тип локального изменения
type MutationKind int

const (
	// MutationSet присвоить значение полю-регистру
	MutationSet MutationKind = iota
	// MutationAdd добавить элемент в поле-множество
	MutationAdd
	// MutationRemove удалить элемент из поля-множества
	MutationRemove
)

// Mutation описывает локальное изменение документа пользователем.
type Mutation struct {
	Value   any
	Field   string
	Element string
	Kind    MutationKind
}

// SetField создает изменение регистра.
func SetField(field string, value any) Mutation {
	return Mutation{Kind: MutationSet, Field: field, Value: value}
}

// AddElement создает добавление элемента в множество.
func AddElement(field, element string) Mutation {
	return Mutation{Kind: MutationAdd, Field: field, Element: element}
}

// RemoveElement создает удаление элемента из множества.
func RemoveElement(field, element string) Mutation {
	return Mutation{Kind: MutationRemove, Field: field, Element: element}
}

// Editor превращает локальные изменения в операции документа,
// выдавая им метки от часов реплики.
type Editor struct {
	clock *LamportClock
}

// NewEditor создает редактор поверх часов реплики.
func NewEditor(clock *LamportClock) *Editor {
	return &Editor{clock: clock}
}

// Clock возвращает часы редактора.
func (e *Editor) Clock() *LamportClock {
	return e.clock
}

// ApplyLocalChange применяет изменение к копии документа и возвращает
// новый документ вместе с созданными операциями (дельтой для отправки).
// Удаление отсутствующего элемента не создает операций.
func (e *Editor) ApplyLocalChange(doc *Document, m Mutation) (*Document, []Op, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("%w: nil document", ErrInvalidOp)
	}
	if m.Field == "" {
		return nil, nil, ErrEmptyMutation
	}

	result := doc.Clone()

	// Метка нового изменения должна быть больше всего, что реплика уже видела
	e.clock.Observe(doc.MaxCounter())

	var op Op
	switch m.Kind {
	case MutationSet:
		value, err := json.Marshal(m.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode value for %q: %w", m.Field, err)
		}
		op = Op{Kind: OpSet, Field: m.Field, Value: value}
	case MutationAdd:
		if m.Element == "" {
			return nil, nil, fmt.Errorf("%w: empty element", ErrInvalidOp)
		}
		op = Op{Kind: OpAdd, Field: m.Field, Element: m.Element}
	case MutationRemove:
		if m.Element == "" {
			return nil, nil, fmt.Errorf("%w: empty element", ErrInvalidOp)
		}
		observed := doc.liveAdds(m.Field, m.Element)
		if len(observed) == 0 {
			return result, nil, nil
		}
		op = Op{Kind: OpRemove, Field: m.Field, Element: m.Element, Observed: observed}
	default:
		return nil, nil, fmt.Errorf("%w: unknown mutation kind %d", ErrInvalidOp, m.Kind)
	}

	op.ID = e.clock.Tick()
	result.insert(op)

	return result, []Op{op}, nil
}

// ApplyLocalChanges последовательно применяет несколько изменений.
func (e *Editor) ApplyLocalChanges(doc *Document, mutations ...Mutation) (*Document, []Op, error) {
	current := doc
	var delta []Op
	for _, m := range mutations {
		next, ops, err := e.ApplyLocalChange(current, m)
		if err != nil {
			return nil, nil, err
		}
		current = next
		delta = append(delta, ops...)
	}
	if current == doc && doc != nil {
		current = doc.Clone()
	}
	return current, delta, nil
}
