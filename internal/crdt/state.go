package crdt

import (
	"encoding/json"
	"fmt"
	"sort"
)

// State материализованное значение документа.
// Вычисляется только из множества операций, поэтому реплики с одинаковой
// историей всегда видят одинаковое состояние.
type State struct {
	Fields map[string]json.RawMessage `json:"fields"` // LWW регистры
	Sets   map[string][]string        `json:"sets"`   // add-wins OR-set, элементы отсортированы
}

// State материализует текущее значение документа.
func (d *Document) State() State {
	state := State{
		Fields: make(map[string]json.RawMessage),
		Sets:   make(map[string][]string),
	}

	winners := make(map[string]Stamp)
	removed := make(map[Stamp]struct{})
	adds := make(map[string]map[string][]Stamp) // field -> element -> add stamps

	for id, op := range d.ops {
		switch op.Kind {
		case OpSet:
			if current, ok := winners[op.Field]; !ok || current.Less(id) {
				winners[op.Field] = id
				state.Fields[op.Field] = op.Value
			}
		case OpAdd:
			if adds[op.Field] == nil {
				adds[op.Field] = make(map[string][]Stamp)
			}
			adds[op.Field][op.Element] = append(adds[op.Field][op.Element], id)
		case OpRemove:
			for _, observed := range op.Observed {
				removed[observed] = struct{}{}
			}
		}
	}

	// Элемент присутствует, если хотя бы одно его добавление не было
	// наблюдено ни одним удалением (конкурентное добавление побеждает).
	for field, elements := range adds {
		var visible []string
		for element, stamps := range elements {
			for _, stamp := range stamps {
				if _, gone := removed[stamp]; !gone {
					visible = append(visible, element)
					break
				}
			}
		}
		if len(visible) > 0 {
			sort.Strings(visible)
			state.Sets[field] = visible
		}
	}

	for field, value := range state.Fields {
		state.Fields[field] = append(json.RawMessage(nil), value...)
	}

	return state
}

// liveAdds возвращает метки добавлений элемента, еще не удаленных.
func (d *Document) liveAdds(field, element string) []Stamp {
	removed := make(map[Stamp]struct{})
	for _, op := range d.ops {
		if op.Kind == OpRemove && op.Field == field {
			for _, observed := range op.Observed {
				removed[observed] = struct{}{}
			}
		}
	}

	var live []Stamp
	for id, op := range d.ops {
		if op.Kind != OpAdd || op.Field != field || op.Element != element {
			continue
		}
		if _, gone := removed[id]; !gone {
			live = append(live, id)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Less(live[j]) })
	return live
}

// Decode декодирует значение регистра в v. Возвращает false, если поле не задано.
func (s State) Decode(field string, v any) (bool, error) {
	raw, ok := s.Fields[field]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to decode field %q: %w", field, err)
	}
	return true, nil
}

// Contains проверяет наличие элемента в поле-множестве.
func (s State) Contains(field, element string) bool {
	for _, e := range s.Sets[field] {
		if e == element {
			return true
		}
	}
	return false
}
