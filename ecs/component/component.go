package component

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	ErrNotRegistered     = errors.New("ecs: component type not registered")
	ErrNameConflict      = errors.New("ecs: component name already registered")
	ErrPropertyOwner     = errors.New("ecs: property owner mismatch")
	ErrPropertyValue     = errors.New("ecs: property value has wrong type")
	ErrPropertyReadOnly  = errors.New("ecs: property is read-only")
	ErrUnknownProperty   = errors.New("ecs: unknown property")
	ErrDuplicateProperty = errors.New("ecs: duplicate property name")
)

// TypeID identifies a component type for the lifetime of the process. It is
// not a stored format.
type TypeID uint32

var nextTypeID atomic.Uint32

// Destroyer is implemented by components that own resources which must be
// released when the component is removed or its entity is destroyed.
type Destroyer interface {
	Destroy()
}

// Factory allocates a zero value component and returns a pointer to it.
type Factory func() any

// Descriptor is the runtime record of one component type.
type Descriptor struct {
	id         TypeID
	name       string
	goType     reflect.Type
	factory    Factory
	reflection []Property
	byName     map[string]Property
	explicit   bool
}

func (d *Descriptor) ID() TypeID {
	return d.id
}

func (d *Descriptor) Name() string {
	return d.name
}

// Type is the component's value type (not the pointer type stored on entities).
func (d *Descriptor) Type() reflect.Type {
	return d.goType
}

// Registered reports whether the type was registered explicitly. Types first
// seen through IDFor only carry an id, a name and a factory.
func (d *Descriptor) Registered() bool {
	return d.explicit
}

// New returns a pointer to a default-constructed component, type-erased.
func (d *Descriptor) New() any {
	return d.factory()
}

// Reflection returns the ordered property list. It panics for types that
// were never registered explicitly.
func (d *Descriptor) Reflection() []Property {
	d.mustBeRegistered()
	return append([]Property(nil), d.reflection...)
}

// Property looks up a property by name.
func (d *Descriptor) Property(name string) (Property, bool) {
	d.mustBeRegistered()
	p, ok := d.byName[name]
	return p, ok
}

func (d *Descriptor) mustBeRegistered() {
	if !d.explicit {
		panic(fmt.Errorf("%w: %s", ErrNotRegistered, d.name))
	}
}

// Registry maps Go types to descriptors. Ids come from a process-wide counter
// so descriptors from different registries never share an id.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Descriptor
	byName map[string]*Descriptor
	byID   map[TypeID]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Descriptor),
		byName: make(map[string]*Descriptor),
		byID:   make(map[TypeID]*Descriptor),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by Register and IDFor.
func Default() *Registry {
	return defaultRegistry
}

// ByName returns the descriptor registered under name.
func (r *Registry) ByName(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

func (r *Registry) ByID(id TypeID) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Descriptors returns every known descriptor ordered by id.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	out := make([]*Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Handle is a typed reference to a registered component type, meant to be
// kept in a package-level var next to the component definition.
type Handle[T any] struct {
	desc *Descriptor
}

func (h Handle[T]) ID() TypeID {
	if h.desc == nil {
		return 0
	}
	return h.desc.id
}

func (h Handle[T]) Descriptor() *Descriptor {
	return h.desc
}

func (h Handle[T]) Valid() bool {
	return h.desc != nil && h.desc.id != 0
}

// Register registers T in the default registry under name.
func Register[T any](name string, props ...Property) Handle[T] {
	return RegisterIn[T](defaultRegistry, name, nil, props...)
}

// RegisterIn registers T in r. A nil factory allocates new(T). Registering
// the same type again returns the existing descriptor unchanged. A type that
// was only seen through IDFor keeps its id and gains the name, factory and
// properties.
func RegisterIn[T any](r *Registry, name string, factory func() *T, props ...Property) Handle[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.byType[typ]
	if d != nil && d.explicit {
		return Handle[T]{desc: d}
	}
	if name == "" {
		name = typ.String()
	}
	if other, ok := r.byName[name]; ok && other.goType != typ {
		panic(fmt.Errorf("%w: %q is %s, not %s", ErrNameConflict, name, other.goType, typ))
	}

	byName := make(map[string]Property, len(props))
	for _, p := range props {
		if owner := p.OwnerType(); owner != typ {
			panic(fmt.Errorf("%w: property %q belongs to %s, registered on %s", ErrPropertyOwner, p.Name(), owner, typ))
		}
		if _, dup := byName[p.Name()]; dup {
			panic(fmt.Errorf("%w: %s.%s", ErrDuplicateProperty, name, p.Name()))
		}
		byName[p.Name()] = p
	}

	if d == nil {
		d = &Descriptor{id: TypeID(nextTypeID.Add(1)), goType: typ}
		r.byType[typ] = d
		r.byID[d.id] = d
	} else if r.byName[d.name] == d {
		delete(r.byName, d.name)
	}
	d.name = name
	d.factory = factoryFor(factory)
	d.reflection = append([]Property(nil), props...)
	d.byName = byName
	d.explicit = true
	r.byName[name] = d
	return Handle[T]{desc: d}
}

// DescriptorOf returns the descriptor for T in r, creating an implicit one on
// first use.
func DescriptorOf[T any](r *Registry) *Descriptor {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.RLock()
	d := r.byType[typ]
	r.mu.RUnlock()
	if d != nil {
		return d
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.byType[typ]; d != nil {
		return d
	}
	d = &Descriptor{
		id:      TypeID(nextTypeID.Add(1)),
		name:    typ.String(),
		goType:  typ,
		factory: factoryFor[T](nil),
	}
	r.byType[typ] = d
	r.byID[d.id] = d
	if _, taken := r.byName[d.name]; !taken {
		r.byName[d.name] = d
	}
	return d
}

// IDFor returns the stable id of T in the default registry.
func IDFor[T any]() TypeID {
	return DescriptorOf[T](defaultRegistry).id
}

// ReflectionFor returns T's property list, panicking if T is unregistered.
func ReflectionFor[T any]() []Property {
	return DescriptorOf[T](defaultRegistry).Reflection()
}

func factoryFor[T any](factory func() *T) Factory {
	if factory == nil {
		return func() any { return new(T) }
	}
	return func() any { return factory() }
}
