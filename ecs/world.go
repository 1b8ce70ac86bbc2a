package ecs

// World owns the entity manager, system order and event queue.
type World struct {
	entities  *EntityManager
	scheduler *Scheduler
	events    EventQueue
	ticks     uint64
}

// NewWorld creates a world around m, or around a fresh manager if m is nil.
func NewWorld(m *EntityManager) *World {
	if m == nil {
		m = NewEntityManager()
	}
	return &World{entities: m, scheduler: NewScheduler()}
}

func (w *World) Entities() *EntityManager {
	if w == nil {
		return nil
	}
	return w.entities
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if w == nil {
		return
	}
	w.scheduler.Add(s)
}

// Tick runs every system once, clears the event queue, then destroys entities
// erased during the tick. Events pushed by destroy hooks survive into the next
// tick.
func (w *World) Tick(dt float64) {
	if w == nil {
		return
	}
	w.ticks++
	w.scheduler.Update(w, dt)
	w.events.flush()
	w.entities.Flush()
}

// Ticks returns how many ticks have started.
func (w *World) Ticks() uint64 {
	if w == nil {
		return 0
	}
	return w.ticks
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}
