package physics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/log"
)

var (
	ErrNoCollisionObject = errors.New("physics: entity has no rigid body or character controller")
	ErrNilEntity         = errors.New("physics: nil entity")
	ErrNilCallback       = errors.New("physics: nil callback")
)

// Callback receives both entities in the order the listener was registered.
type Callback func(a, b *ecs.Entity)

// Phase is the stage of a collision episode.
type Phase uint8

const (
	PhaseBegin Phase = iota + 1
	PhasePersist
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseBegin:
		return "begin"
	case PhasePersist:
		return "persist"
	case PhaseEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event types pushed onto the world event queue.
const (
	EventCollisionBegin   = "collision.begin"
	EventCollisionPersist = "collision.persist"
	EventCollisionEnd     = "collision.end"
)

// CollisionEvent is the payload of collision events. A is always the lower id.
type CollisionEvent struct {
	Phase Phase
	A     ecs.EntityID
	B     ecs.EntityID
}

func (p Phase) eventType() string {
	switch p {
	case PhaseBegin:
		return EventCollisionBegin
	case PhasePersist:
		return EventCollisionPersist
	default:
		return EventCollisionEnd
	}
}

type pairKey struct {
	a, b ecs.EntityID
}

func orderedPair(a, b ecs.EntityID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

func (k pairKey) involves(id ecs.EntityID) bool {
	return k.a == id || k.b == id
}

func sortPairs(keys []pairKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
}

// CollisionLayer turns per-step contact manifolds into begin, persist and end
// callbacks keyed by ordered entity pairs.
//
// Episode state is keyed by the unordered pair, so contact reported in either
// object order belongs to the same episode. Listeners are keyed by the ordered
// pair they were registered with and receive entities in that order.
type CollisionLayer struct {
	world    World
	entities *ecs.EntityManager
	log      log.Log
	events   *ecs.EventQueue

	tags    map[Handle]ecs.EntityID
	handles map[ecs.EntityID][]Handle

	persist map[pairKey]Callback
	begin   map[pairKey]Callback
	end     map[pairKey]Callback

	open map[pairKey]struct{}
	seen map[pairKey]struct{}
}

type LayerOption func(*CollisionLayer)

func WithLayerLogger(l log.Log) LayerOption {
	return func(c *CollisionLayer) {
		if l != nil {
			c.log = l
		}
	}
}

// WithEvents mirrors every dispatched phase onto q.
func WithEvents(q *ecs.EventQueue) LayerOption {
	return func(c *CollisionLayer) {
		c.events = q
	}
}

// NewCollisionLayer creates a layer over world. It registers a destroy hook on
// entities so episodes are closed and state is pruned when an entity dies.
func NewCollisionLayer(world World, entities *ecs.EntityManager, opts ...LayerOption) *CollisionLayer {
	l := &CollisionLayer{
		world:    world,
		entities: entities,
		log:      log.Nop(),
		tags:     make(map[Handle]ecs.EntityID),
		handles:  make(map[ecs.EntityID][]Handle),
		persist:  make(map[pairKey]Callback),
		begin:    make(map[pairKey]Callback),
		end:      make(map[pairKey]Callback),
		open:     make(map[pairKey]struct{}),
		seen:     make(map[pairKey]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	entities.OnDestroy(l.Prune)
	return l
}

// AttachEvents replaces the queue collision events are mirrored to.
func (l *CollisionLayer) AttachEvents(q *ecs.EventQueue) {
	l.events = q
}

// RegisterCollisionCallback fires fn every tick a and b are in contact.
func (l *CollisionLayer) RegisterCollisionCallback(a, b *ecs.Entity, fn Callback) error {
	return l.register(l.persist, a, b, fn)
}

// RegisterCollisionBeginCallback fires fn once when a contact episode between
// a and b starts.
func (l *CollisionLayer) RegisterCollisionBeginCallback(a, b *ecs.Entity, fn Callback) error {
	return l.register(l.begin, a, b, fn)
}

// RegisterCollisionEndCallback fires fn once when a contact episode between a
// and b closes.
func (l *CollisionLayer) RegisterCollisionEndCallback(a, b *ecs.Entity, fn Callback) error {
	return l.register(l.end, a, b, fn)
}

func (l *CollisionLayer) register(listeners map[pairKey]Callback, a, b *ecs.Entity, fn Callback) error {
	if a == nil || b == nil {
		return ErrNilEntity
	}
	if fn == nil {
		return ErrNilCallback
	}
	handlesA, err := l.collisionObjects(a)
	if err != nil {
		return err
	}
	handlesB, err := l.collisionObjects(b)
	if err != nil {
		return err
	}
	l.tag(a.ID(), handlesA)
	l.tag(b.ID(), handlesB)
	// a later registration on the same ordered pair replaces the earlier one
	listeners[pairKey{a: a.ID(), b: b.ID()}] = fn
	return nil
}

func (l *CollisionLayer) HasCollisionCallback(a, b *ecs.Entity) bool {
	return hasListener(l.persist, a, b)
}

func (l *CollisionLayer) HasCollisionBeginCallback(a, b *ecs.Entity) bool {
	return hasListener(l.begin, a, b)
}

func (l *CollisionLayer) HasCollisionEndCallback(a, b *ecs.Entity) bool {
	return hasListener(l.end, a, b)
}

func hasListener(listeners map[pairKey]Callback, a, b *ecs.Entity) bool {
	if a == nil || b == nil {
		return false
	}
	_, ok := listeners[pairKey{a: a.ID(), b: b.ID()}]
	return ok
}

// DidCollide reports whether a and b are inside an open contact episode. The
// argument order does not matter.
func (l *CollisionLayer) DidCollide(a, b *ecs.Entity) bool {
	if a == nil || b == nil {
		return false
	}
	_, ok := l.open[orderedPair(a.ID(), b.ID())]
	return ok
}

// Tag attaches e's id to every native collision object backing it. Tagging is
// idempotent. An entity without a physics representation is a configuration
// error: it is logged and ErrNoCollisionObject is returned.
func (l *CollisionLayer) Tag(e *ecs.Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	handles, err := l.collisionObjects(e)
	if err != nil {
		return err
	}
	l.tag(e.ID(), handles)
	return nil
}

func (l *CollisionLayer) collisionObjects(e *ecs.Entity) ([]Handle, error) {
	handles, ok := l.world.CollisionObjects(e)
	if !ok || len(handles) == 0 {
		l.log.Error("physics: cannot tag entity without collision object",
			log.Uint64("entity", uint64(e.ID())),
		)
		return nil, fmt.Errorf("%w: entity %s", ErrNoCollisionObject, e.ID())
	}
	return handles, nil
}

func (l *CollisionLayer) tag(id ecs.EntityID, handles []Handle) {
	for _, h := range handles {
		if h == nil {
			continue
		}
		if owner, tagged := l.tags[h]; tagged && owner == id {
			continue
		}
		l.tags[h] = id
		l.handles[id] = append(l.handles[id], h)
	}
}

// Tagged returns the entity id attached to h.
func (l *CollisionLayer) Tagged(h Handle) (ecs.EntityID, bool) {
	id, ok := l.tags[h]
	return id, ok
}

// Process consumes the manifolds of one step. Listeners run in ascending pair
// order: begin and persist for pairs in contact, then end for open episodes
// that saw no contact this step.
func (l *CollisionLayer) Process(manifolds []Manifold) {
	clear(l.seen)
	for _, m := range manifolds {
		if !m.Touching() {
			continue
		}
		idA, okA := l.tags[m.A]
		idB, okB := l.tags[m.B]
		if !okA || !okB {
			l.log.Debug("physics: contact without entity tag skipped",
				log.Bool("tagged_a", okA),
				log.Bool("tagged_b", okB),
			)
			continue
		}
		if idA == idB {
			continue
		}
		l.seen[orderedPair(idA, idB)] = struct{}{}
	}

	touching := make([]pairKey, 0, len(l.seen))
	for key := range l.seen {
		touching = append(touching, key)
	}
	sortPairs(touching)

	for _, key := range touching {
		a := l.entities.Resolve(key.a)
		b := l.entities.Resolve(key.b)
		if a == nil || b == nil {
			// pending deletion: the flush closes the episode
			continue
		}
		if _, ok := l.open[key]; !ok {
			l.open[key] = struct{}{}
			l.dispatch(PhaseBegin, l.begin, a, b)
		}
		l.dispatch(PhasePersist, l.persist, a, b)
	}

	l.sweep()
}

// sweep closes open episodes whose pair produced no contact this step.
func (l *CollisionLayer) sweep() {
	closed := make([]pairKey, 0)
	for key := range l.open {
		if _, ok := l.seen[key]; !ok {
			closed = append(closed, key)
		}
	}
	sortPairs(closed)

	for _, key := range closed {
		a := l.entities.Resolve(key.a)
		b := l.entities.Resolve(key.b)
		if a == nil || b == nil {
			continue
		}
		delete(l.open, key)
		l.dispatch(PhaseEnd, l.end, a, b)
	}
}

// Prune closes e's open episodes, firing end listeners, and forgets its
// listeners and tags. It runs as a destroy hook while e is still intact.
func (l *CollisionLayer) Prune(e *ecs.Entity) {
	if e == nil {
		return
	}
	id := e.ID()

	var closing []pairKey
	for key := range l.open {
		if key.involves(id) {
			closing = append(closing, key)
		}
	}
	sortPairs(closing)
	for _, key := range closing {
		delete(l.open, key)
		a := l.entities.Entity(key.a)
		b := l.entities.Entity(key.b)
		if a == nil || b == nil {
			continue
		}
		l.dispatch(PhaseEnd, l.end, a, b)
	}

	for _, listeners := range []map[pairKey]Callback{l.persist, l.begin, l.end} {
		for key := range listeners {
			if key.involves(id) {
				delete(listeners, key)
			}
		}
	}
	for _, h := range l.handles[id] {
		if l.tags[h] == id {
			delete(l.tags, h)
		}
	}
	delete(l.handles, id)
}

// dispatch fires the listener of each registered order of (a, b).
func (l *CollisionLayer) dispatch(phase Phase, listeners map[pairKey]Callback, a, b *ecs.Entity) {
	if fn, ok := listeners[pairKey{a: a.ID(), b: b.ID()}]; ok {
		fn(a, b)
	}
	if fn, ok := listeners[pairKey{a: b.ID(), b: a.ID()}]; ok {
		fn(b, a)
	}
	if l.events != nil {
		l.events.Push(ecs.Event{
			Type: phase.eventType(),
			Data: CollisionEvent{Phase: phase, A: a.ID(), B: b.ID()},
		})
	}
}

// OpenEpisodes returns how many pairs are currently in contact.
func (l *CollisionLayer) OpenEpisodes() int {
	return len(l.open)
}
