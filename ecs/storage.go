package ecs

// entityStore tracks slot generations and free slots. Slot indices start at 1.
type entityStore struct {
	gen  []uint32
	free []uint32
}

func (s *entityStore) allocate() EntityID {
	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.gen = append(s.gen, 1)
		index = uint32(len(s.gen))
	}
	return makeEntityID(index, s.gen[index-1])
}

// release retires id and makes its slot reusable under a new generation.
func (s *entityStore) release(id EntityID) bool {
	if !s.current(id) {
		return false
	}
	s.gen[id.Index()-1]++
	s.free = append(s.free, id.Index())
	return true
}

func (s *entityStore) current(id EntityID) bool {
	index := id.Index()
	if index == 0 || int(index) > len(s.gen) {
		return false
	}
	return s.gen[index-1] == id.Generation()
}
