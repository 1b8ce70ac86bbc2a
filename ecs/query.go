package ecs

import "github.com/milk9111/simcore/ecs/component"

// Query returns resolvable entities holding every listed component type.
func Query(m *EntityManager, ids ...component.TypeID) []*Entity {
	if m == nil {
		return nil
	}
	entities := m.Entities()
	out := entities[:0]
	for _, e := range entities {
		match := true
		for _, id := range ids {
			if !e.HasComponent(id) {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}
