package ecs

import (
	"fmt"

	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
)

// TemplateSource applies a named composition of components to a fresh entity.
type TemplateSource interface {
	Apply(name string, e *Entity) error
}

// DestroyHook observes an entity right before its components are destroyed.
type DestroyHook func(e *Entity)

// EntityManager is the sole owner of entity lifetime. Every other holder of an
// EntityID re-resolves it here instead of caching the pointer across ticks.
//
// An id moves through unallocated -> live -> pending deletion -> destroyed.
// Erase only queues; Flush is the single point where entities are destroyed.
type EntityManager struct {
	store      entityStore
	live       SparseSet
	pending    []EntityID
	pendingSet map[EntityID]struct{}
	hooks      []DestroyHook
	registry   *component.Registry
	templates  TemplateSource
	log        log.Log
}

type ManagerOption func(*EntityManager)

// WithRegistry resolves components through reg instead of component.Default().
func WithRegistry(reg *component.Registry) ManagerOption {
	return func(m *EntityManager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

func WithTemplates(src TemplateSource) ManagerOption {
	return func(m *EntityManager) {
		m.templates = src
	}
}

func WithLogger(l log.Log) ManagerOption {
	return func(m *EntityManager) {
		if l != nil {
			m.log = l
		}
	}
}

func NewEntityManager(opts ...ManagerOption) *EntityManager {
	m := &EntityManager{
		pendingSet: make(map[EntityID]struct{}),
		registry:   component.Default(),
		log:        log.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *EntityManager) Registry() *component.Registry {
	return m.registry
}

// SetTemplates replaces the template source used by EmplaceTemplate.
func (m *EntityManager) SetTemplates(src TemplateSource) {
	m.templates = src
}

// OnDestroy registers a hook run for every entity destroyed by Flush or Clear.
func (m *EntityManager) OnDestroy(hook DestroyHook) {
	if hook == nil {
		return
	}
	m.hooks = append(m.hooks, hook)
}

// Emplace allocates a new live entity.
func (m *EntityManager) Emplace(position common.Vec3, rotation common.Quat, scale common.Vec3) *Entity {
	e := newEntity(m.store.allocate(), m.registry, position, rotation, scale)
	m.live.Set(e)
	return e
}

// EmplaceTemplate allocates an entity and applies the named template to it.
// If the template fails the entity is destroyed on the spot and its id is
// never observable.
func (m *EntityManager) EmplaceTemplate(name string, position common.Vec3, rotation common.Quat, scale common.Vec3) (*Entity, error) {
	if m.templates == nil {
		return nil, ErrNoTemplateSource
	}
	e := m.Emplace(position, rotation, scale)
	if err := m.templates.Apply(name, e); err != nil {
		e.destroy()
		m.live.Remove(e.id.Index())
		m.store.release(e.id)
		return nil, fmt.Errorf("ecs: emplace template %q: %w", name, err)
	}
	return e, nil
}

// Erase queues id for destruction at the next Flush. It reports whether the
// id was live and not already queued.
func (m *EntityManager) Erase(id EntityID) bool {
	if m.lookup(id) == nil {
		m.log.Debug("ecs: erase of unknown entity ignored", log.Uint64("entity", uint64(id)))
		return false
	}
	if _, queued := m.pendingSet[id]; queued {
		return false
	}
	m.pending = append(m.pending, id)
	m.pendingSet[id] = struct{}{}
	return true
}

// Flush destroys every queued entity in erase order and returns how many were
// destroyed. Ids erased by destroy hooks are drained in the same flush.
func (m *EntityManager) Flush() int {
	destroyed := 0
	for len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]
		delete(m.pendingSet, id)

		e := m.lookup(id)
		if e == nil {
			continue
		}
		m.destroy(e)
		destroyed++
	}
	m.pending = nil
	return destroyed
}

// Clear destroys every entity immediately. Use it on teardown, never mid-tick.
func (m *EntityManager) Clear() {
	entities := append([]*Entity(nil), m.live.Values()...)
	for _, e := range entities {
		m.destroy(e)
	}
	m.pending = nil
	m.pendingSet = make(map[EntityID]struct{})
}

func (m *EntityManager) destroy(e *Entity) {
	for _, hook := range m.hooks {
		hook(e)
	}
	e.destroy()
	m.live.Remove(e.id.Index())
	m.store.release(e.id)
}

// Resolve returns the live entity for id, or nil when the id was never
// allocated, is queued for deletion or has been destroyed.
func (m *EntityManager) Resolve(id EntityID) *Entity {
	if _, queued := m.pendingSet[id]; queued {
		return nil
	}
	return m.lookup(id)
}

// Entity returns the entity for id until the flush that destroys it. Unlike
// Resolve it still answers for ids queued by Erase, so destroy hooks can reach
// the other side of a relation torn down in the same flush.
func (m *EntityManager) Entity(id EntityID) *Entity {
	return m.lookup(id)
}

// Pending reports whether id is queued for deletion.
func (m *EntityManager) Pending(id EntityID) bool {
	_, queued := m.pendingSet[id]
	return queued
}

func (m *EntityManager) lookup(id EntityID) *Entity {
	e := m.live.Get(id.Index())
	if e == nil || e.id != id {
		return nil
	}
	return e
}

// Each calls fn for every resolvable entity in allocation-slot order until fn
// returns false. Entities emplaced during iteration are not visited.
func (m *EntityManager) Each(fn func(e *Entity) bool) {
	for _, e := range m.Entities() {
		if !fn(e) {
			return
		}
	}
}

// Entities returns a snapshot of every resolvable entity.
func (m *EntityManager) Entities() []*Entity {
	values := m.live.Values()
	out := make([]*Entity, 0, len(values))
	for _, e := range values {
		if _, queued := m.pendingSet[e.id]; queued {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len counts entities not yet destroyed, including those pending deletion.
func (m *EntityManager) Len() int {
	return m.live.Len()
}
