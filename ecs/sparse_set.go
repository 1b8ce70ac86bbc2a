package ecs

// SparseSet stores entities keyed by slot index with dense, insertion-ordered
// iteration.
type SparseSet struct {
	dense  []*Entity
	sparse []int
}

// Has returns true if the slot index is occupied.
func (s *SparseSet) Has(index uint32) bool {
	if s == nil || index == 0 || int(index) > len(s.sparse) {
		return false
	}
	pos := s.sparse[index-1]
	return pos >= 0 && pos < len(s.dense) && s.dense[pos].id.Index() == index
}

// Get returns the entity in the slot, or nil.
func (s *SparseSet) Get(index uint32) *Entity {
	if !s.Has(index) {
		return nil
	}
	return s.dense[s.sparse[index-1]]
}

// Set inserts or replaces the entity for its slot.
func (s *SparseSet) Set(e *Entity) {
	if s == nil || e == nil || e.id.Index() == 0 {
		return
	}
	index := e.id.Index()
	for int(index) > len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	if s.Has(index) {
		s.dense[s.sparse[index-1]] = e
		return
	}
	s.dense = append(s.dense, e)
	s.sparse[index-1] = len(s.dense) - 1
}

// Remove deletes the slot if present. The last dense element fills the hole.
func (s *SparseSet) Remove(index uint32) {
	if s == nil || !s.Has(index) {
		return
	}
	pos := s.sparse[index-1]
	last := len(s.dense) - 1
	moved := s.dense[last]

	s.dense[pos] = moved
	s.sparse[moved.id.Index()-1] = pos

	s.dense[last] = nil
	s.dense = s.dense[:last]
	s.sparse[index-1] = -1
}

// Values returns the dense entity list. Callers must not mutate it.
func (s *SparseSet) Values() []*Entity {
	if s == nil {
		return nil
	}
	return s.dense
}

func (s *SparseSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dense)
}
