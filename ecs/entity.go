package ecs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs/component"
)

var (
	ErrDuplicateComponent = errors.New("ecs: component already present on entity")
	ErrUnknownComponent   = errors.New("ecs: unknown component type")
	ErrNoTemplateSource   = errors.New("ecs: no template source configured")
)

// EntityID is a generation-stamped identifier: the low 32 bits hold a slot
// index, the high 32 bits the slot's generation. A recycled slot never
// reproduces an id that was handed out before.
type EntityID uint64

const entityIndexBits = 32

func makeEntityID(index, gen uint32) EntityID {
	return EntityID(uint64(gen)<<entityIndexBits | uint64(index))
}

func (id EntityID) Index() uint32 {
	return uint32(id)
}

func (id EntityID) Generation() uint32 {
	return uint32(uint64(id) >> entityIndexBits)
}

func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id EntityID) Valid() bool {
	return id.Index() > 0
}

// Entity owns at most one component of each type plus its spatial state.
// Components are held as pointers and owned exclusively by the entity.
type Entity struct {
	id EntityID

	Position common.Vec3
	Rotation common.Quat
	Scale    common.Vec3

	components map[component.TypeID]any
	registry   *component.Registry
}

func newEntity(id EntityID, reg *component.Registry, position common.Vec3, rotation common.Quat, scale common.Vec3) *Entity {
	return &Entity{
		id:         id,
		Position:   position,
		Rotation:   rotation,
		Scale:      scale,
		components: make(map[component.TypeID]any),
		registry:   reg,
	}
}

func (e *Entity) ID() EntityID {
	return e.id
}

// Registry is the type registry used to resolve this entity's components.
func (e *Entity) Registry() *component.Registry {
	return e.registry
}

// AddByID default-constructs a component of the given type and attaches it.
func (e *Entity) AddByID(id component.TypeID) (any, error) {
	desc, ok := e.registry.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownComponent, id)
	}
	instance := desc.New()
	if err := e.Attach(id, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// Attach stores an already constructed component instance. instance must be
// the pointer type the registry factory produces for id.
func (e *Entity) Attach(id component.TypeID, instance any) error {
	if _, exists := e.components[id]; exists {
		name := strconv.FormatUint(uint64(id), 10)
		if desc, ok := e.registry.ByID(id); ok {
			name = desc.Name()
		}
		return fmt.Errorf("%w: %s on entity %s", ErrDuplicateComponent, name, e.id)
	}
	e.components[id] = instance
	return nil
}

// ComponentByID returns the component instance or nil.
func (e *Entity) ComponentByID(id component.TypeID) any {
	return e.components[id]
}

func (e *Entity) HasComponent(id component.TypeID) bool {
	_, ok := e.components[id]
	return ok
}

// RemoveByID destroys and releases the component, reporting whether one was present.
func (e *Entity) RemoveByID(id component.TypeID) bool {
	instance, ok := e.components[id]
	if !ok {
		return false
	}
	delete(e.components, id)
	destroyComponent(instance)
	return true
}

// Components returns the ids of held components in ascending order.
func (e *Entity) Components() []component.TypeID {
	ids := make([]component.TypeID, 0, len(e.components))
	for id := range e.components {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *Entity) destroy() {
	ids := e.Components()
	for i := len(ids) - 1; i >= 0; i-- {
		e.RemoveByID(ids[i])
	}
}

func destroyComponent(instance any) {
	if d, ok := instance.(component.Destroyer); ok {
		d.Destroy()
	}
}
