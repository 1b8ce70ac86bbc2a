package ecs

import (
	"errors"
	"testing"

	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs/component"
)

type testPosition struct {
	X, Y float64
}

type testVelocity struct {
	DX float64
}

type testResource struct {
	destroyed *int
}

func (r *testResource) Destroy() {
	*r.destroyed++
}

func emplace(m *EntityManager) *Entity {
	return m.Emplace(common.Vec3{}, common.Identity(), common.One)
}

func TestEntityManagerLifecycle(t *testing.T) {
	cases := []struct {
		name       string
		create     int
		eraseIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_erase_middle", 3, 1},
		{"none_erased", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewEntityManager()
			ents := make([]*Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				e := emplace(m)
				if m.Resolve(e.ID()) != e {
					t.Fatalf("resolve after emplace returned a different entity")
				}
				ents = append(ents, e)
			}
			if m.Len() != c.create {
				t.Fatalf("expected %d entities, got %d", c.create, m.Len())
			}
			if c.eraseIndex < 0 {
				if n := m.Flush(); n != 0 {
					t.Fatalf("expected empty flush, destroyed %d", n)
				}
				return
			}
			id := ents[c.eraseIndex].ID()
			if !m.Erase(id) {
				t.Fatalf("Erase should accept a live entity")
			}
			if m.Resolve(id) != nil {
				t.Fatalf("resolve should hide entities pending deletion")
			}
			if m.Entity(id) != ents[c.eraseIndex] {
				t.Fatalf("entity should still answer until the flush")
			}
			if !m.Pending(id) || m.Len() != c.create {
				t.Fatalf("erase must not destroy immediately")
			}
			if n := m.Flush(); n != 1 {
				t.Fatalf("expected 1 destroyed, got %d", n)
			}
			if m.Resolve(id) != nil || m.Entity(id) != nil || m.Pending(id) {
				t.Fatalf("entity should be gone after flush")
			}
			if m.Len() != c.create-1 {
				t.Fatalf("expected %d entities, got %d", c.create-1, m.Len())
			}
		})
	}
}

func TestEraseDefersDestruction(t *testing.T) {
	m := NewEntityManager()
	e := emplace(m)
	destroyed := 0
	AddValue(e, testResource{destroyed: &destroyed})

	m.Erase(e.ID())
	if destroyed != 0 {
		t.Fatalf("components destroyed before flush")
	}
	// held references stay usable until the flush
	if Get[testResource](e) == nil {
		t.Fatalf("component vanished before flush")
	}
	m.Flush()
	if destroyed != 1 {
		t.Fatalf("expected component destroyed once, got %d", destroyed)
	}
}

func TestEntityAnswersUntilFlush(t *testing.T) {
	m := NewEntityManager()
	e := emplace(m)
	id := e.ID()

	m.Erase(id)
	if got := m.Entity(id); got != e {
		t.Fatalf("Entity after Erase = %v, want the erased entity", got)
	}
	if m.Resolve(id) != nil {
		t.Fatalf("Resolve must hide queued ids")
	}
	m.Flush()
	if m.Entity(id) != nil {
		t.Fatalf("Entity should miss after flush")
	}
}

func TestEraseTwiceQueuesOnce(t *testing.T) {
	m := NewEntityManager()
	e := emplace(m)
	if !m.Erase(e.ID()) || m.Erase(e.ID()) {
		t.Fatalf("second erase should be rejected")
	}
	if m.Erase(EntityID(999)) {
		t.Fatalf("erase of unknown id should be rejected")
	}
	if n := m.Flush(); n != 1 {
		t.Fatalf("expected 1 destroyed, got %d", n)
	}
}

func TestIDsNeverCollide(t *testing.T) {
	m := NewEntityManager()
	a := emplace(m)
	b := emplace(m)
	m.Erase(a.ID())

	c := emplace(m)
	if c.ID() == a.ID() || c.ID() == b.ID() {
		t.Fatalf("id reused while pending: %s", c.ID())
	}

	m.Flush()
	d := emplace(m)
	if d.ID() == a.ID() {
		t.Fatalf("recycled slot reproduced old id %s", a.ID())
	}
	if d.ID().Index() != a.ID().Index() {
		t.Fatalf("expected slot %d to be recycled, got %d", a.ID().Index(), d.ID().Index())
	}
	if m.Resolve(a.ID()) != nil {
		t.Fatalf("stale id resolved to recycled entity")
	}
}

func TestResolveUnknown(t *testing.T) {
	m := NewEntityManager()
	if m.Resolve(0) != nil || m.Resolve(makeEntityID(5, 1)) != nil {
		t.Fatalf("unknown ids must resolve to nil")
	}
}

func TestClearDestroysEverything(t *testing.T) {
	m := NewEntityManager()
	destroyed := 0
	var hooked []EntityID
	m.OnDestroy(func(e *Entity) { hooked = append(hooked, e.ID()) })

	for i := 0; i < 3; i++ {
		AddValue(emplace(m), testResource{destroyed: &destroyed})
	}
	m.Erase(m.Entities()[0].ID())
	m.Clear()

	if m.Len() != 0 || destroyed != 3 || len(hooked) != 3 {
		t.Fatalf("clear left len=%d destroyed=%d hooked=%d", m.Len(), destroyed, len(hooked))
	}
	if n := m.Flush(); n != 0 {
		t.Fatalf("clear should drop the deletion queue, flushed %d", n)
	}
}

func TestDestroyHookSeesIntactEntity(t *testing.T) {
	m := NewEntityManager()
	e := emplace(m)
	AddValue(e, testPosition{X: 4})

	var seen float64
	m.OnDestroy(func(e *Entity) {
		if p := Get[testPosition](e); p != nil {
			seen = p.X
		}
	})
	m.Erase(e.ID())
	m.Flush()
	if seen != 4 {
		t.Fatalf("hook should observe components before destruction, got %v", seen)
	}
}

func TestHookEraseDrainsInSameFlush(t *testing.T) {
	m := NewEntityManager()
	parent := emplace(m)
	child := emplace(m)
	m.OnDestroy(func(e *Entity) {
		if e.ID() == parent.ID() {
			m.Erase(child.ID())
		}
	})
	m.Erase(parent.ID())
	if n := m.Flush(); n != 2 {
		t.Fatalf("expected cascade of 2, got %d", n)
	}
}

func TestEntityComponents(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, e *Entity)
	}{
		{
			name: "add_then_get",
			check: func(t *testing.T, e *Entity) {
				p := Add[testPosition](e)
				p.X = 3
				if got := Get[testPosition](e); got != p || got.X != 3 {
					t.Fatalf("expected added instance back")
				}
			},
		},
		{
			name: "get_missing_is_nil",
			check: func(t *testing.T, e *Entity) {
				if Get[testVelocity](e) != nil || Has[testVelocity](e) {
					t.Fatalf("missing component should be nil")
				}
			},
		},
		{
			name: "remove",
			check: func(t *testing.T, e *Entity) {
				AddValue(e, testVelocity{DX: 1})
				if !Remove[testVelocity](e) {
					t.Fatalf("remove should report presence")
				}
				if Get[testVelocity](e) != nil {
					t.Fatalf("component still present after remove")
				}
				if Remove[testVelocity](e) {
					t.Fatalf("second remove should report absence")
				}
			},
		},
		{
			name: "double_add_panics",
			check: func(t *testing.T, e *Entity) {
				Add[testPosition](e)
				defer func() {
					r := recover()
					err, ok := r.(error)
					if !ok || !errors.Is(err, ErrDuplicateComponent) {
						t.Fatalf("expected duplicate panic, got %v", r)
					}
				}()
				Add[testPosition](e)
			},
		},
		{
			name: "reflected_access",
			check: func(t *testing.T, e *Entity) {
				id := component.HealthComponent.ID()
				instance, err := e.AddByID(id)
				if err != nil {
					t.Fatalf("AddByID: %v", err)
				}
				if e.ComponentByID(id) != instance || Get[component.Health](e) != instance {
					t.Fatalf("reflected and typed access disagree")
				}
				if _, err := e.AddByID(id); !errors.Is(err, ErrDuplicateComponent) {
					t.Fatalf("expected duplicate error, got %v", err)
				}
				if _, err := e.AddByID(component.TypeID(1 << 30)); !errors.Is(err, ErrUnknownComponent) {
					t.Fatalf("expected unknown error, got %v", err)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, emplace(NewEntityManager()))
		})
	}
}

func TestComponentsOrdered(t *testing.T) {
	e := emplace(NewEntityManager())
	AddValue(e, testVelocity{})
	AddValue(e, testPosition{})
	AddValue(e, component.Label{Name: "x"})
	ids := e.Components()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("components not ordered: %v", ids)
		}
	}
}

type fakeTemplates struct {
	fail error
}

func (f fakeTemplates) Apply(name string, e *Entity) error {
	AddValue(e, component.Label{Name: name})
	return f.fail
}

func TestEmplaceTemplate(t *testing.T) {
	m := NewEntityManager()
	if _, err := m.EmplaceTemplate("crate", common.Vec3{}, common.Identity(), common.One); !errors.Is(err, ErrNoTemplateSource) {
		t.Fatalf("expected ErrNoTemplateSource, got %v", err)
	}

	m.SetTemplates(fakeTemplates{})
	e, err := m.EmplaceTemplate("crate", common.V3(1, 2, 0), common.Identity(), common.One)
	if err != nil {
		t.Fatalf("EmplaceTemplate: %v", err)
	}
	if l := Get[component.Label](e); l == nil || l.Name != "crate" || e.Position.X != 1 {
		t.Fatalf("template not applied")
	}

	boom := errors.New("boom")
	m.SetTemplates(fakeTemplates{fail: boom})
	if _, err := m.EmplaceTemplate("bad", common.Vec3{}, common.Identity(), common.One); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped template error, got %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("failed template left an entity behind, len=%d", m.Len())
	}
}

func TestWorldTickFlushesAfterSystems(t *testing.T) {
	w := NewWorld(nil)
	e := emplace(w.Entities())
	id := e.ID()

	var order []string
	w.AddSystem(SystemFunc(func(w *World, dt float64) {
		order = append(order, "erase")
		w.Entities().Erase(id)
		w.Events().Push(Event{Type: "erased"})
	}))
	w.AddSystem(SystemFunc(func(w *World, dt float64) {
		order = append(order, "observe")
		if w.Entities().Resolve(id) != nil {
			t.Fatalf("later system resolved a pending entity")
		}
		if w.Entities().Len() != 1 {
			t.Fatalf("entity destroyed before end of tick")
		}
		if got := w.Events().Drain(); len(got) != 1 {
			t.Fatalf("expected 1 event, got %d", len(got))
		}
	}))

	w.Tick(1.0 / 60)
	if len(order) != 2 || w.Entities().Len() != 0 || w.Ticks() != 1 {
		t.Fatalf("unexpected tick result order=%v len=%d", order, w.Entities().Len())
	}
	if w.Events().Len() != 0 {
		t.Fatalf("events should be cleared after tick")
	}
}

func TestDestroyHookEventsReachNextTick(t *testing.T) {
	w := NewWorld(nil)
	id := emplace(w.Entities()).ID()
	w.Entities().OnDestroy(func(gone *Entity) {
		w.Events().Push(Event{Type: "destroyed", Data: gone.ID()})
	})

	var seen []Event
	w.AddSystem(SystemFunc(func(w *World, dt float64) {
		seen = append(seen, w.Events().Peek()...)
	}))

	w.Entities().Erase(id)
	w.Tick(1.0 / 60)
	if len(seen) != 0 {
		t.Fatalf("no event expected before the flush, got %v", seen)
	}
	if w.Events().Len() != 1 {
		t.Fatalf("event pushed during flush should stay queued, got %d", w.Events().Len())
	}

	w.Tick(1.0 / 60)
	if len(seen) != 1 || seen[0].Type != "destroyed" || seen[0].Data != id {
		t.Fatalf("expected the destroy event on the next tick, got %v", seen)
	}
	if w.Events().Len() != 0 {
		t.Fatalf("event should be cleared after it was seen")
	}
}

func TestQuery(t *testing.T) {
	m := NewEntityManager()
	a := emplace(m)
	b := emplace(m)
	c := emplace(m)
	AddValue(a, testPosition{})
	AddValue(a, testVelocity{})
	AddValue(b, testPosition{})
	AddValue(c, testPosition{})
	AddValue(c, testVelocity{})
	m.Erase(c.ID())

	got := Query(m, component.IDFor[testPosition](), component.IDFor[testVelocity]())
	if len(got) != 1 || got[0] != a {
		t.Fatalf("expected only a, got %d entities", len(got))
	}
}

func TestSparseSetSwapRemove(t *testing.T) {
	var s SparseSet
	m := NewEntityManager()
	ents := []*Entity{emplace(m), emplace(m), emplace(m)}
	for _, e := range ents {
		s.Set(e)
	}
	s.Remove(ents[0].ID().Index())
	if s.Has(ents[0].ID().Index()) || s.Len() != 2 {
		t.Fatalf("remove failed")
	}
	if s.Get(ents[2].ID().Index()) != ents[2] || s.Get(ents[1].ID().Index()) != ents[1] {
		t.Fatalf("swap remove corrupted lookups")
	}
}
