package component

import (
	"errors"
	"testing"

	"github.com/milk9111/simcore/common"
)

type testWidget struct {
	Size  float64
	Count int
	Name  string
	Pos   common.Vec3
}

type testGadget struct{}

type neverRegistered struct{ N int }

func widgetProps() []Property {
	return []Property{
		Field("size", func(c *testWidget) float64 { return c.Size }, func(c *testWidget, v float64) { c.Size = v }),
		Field("count", func(c *testWidget) int { return c.Count }, func(c *testWidget, v int) { c.Count = v }),
		Field("name", func(c *testWidget) string { return c.Name }, func(c *testWidget, v string) { c.Name = v }),
		Field("pos", func(c *testWidget) common.Vec3 { return c.Pos }, func(c *testWidget, v common.Vec3) { c.Pos = v }),
	}
}

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("expected panic wrapping %v, got %v", target, r)
		}
	}()
	fn()
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	first := RegisterIn[testWidget](r, "widget", nil, widgetProps()...)
	second := RegisterIn[testWidget](r, "widget", nil)

	if first.ID() != second.ID() || first.Descriptor() != second.Descriptor() {
		t.Fatalf("expected same descriptor, got %d and %d", first.ID(), second.ID())
	}
	if got := len(second.Descriptor().Reflection()); got != 4 {
		t.Fatalf("expected reflection to survive re-registration, got %d props", got)
	}
	if d, ok := r.ByName("widget"); !ok || d.ID() != first.ID() {
		t.Fatalf("lookup by name failed")
	}
	if d, ok := r.ByID(first.ID()); !ok || d.Name() != "widget" {
		t.Fatalf("lookup by id failed")
	}
}

func TestTypeIDsAreMonotonic(t *testing.T) {
	r := NewRegistry()
	a := RegisterIn[testWidget](r, "widget", nil).ID()
	b := RegisterIn[testGadget](r, "gadget", nil).ID()
	if b <= a {
		t.Fatalf("expected increasing ids, got %d then %d", a, b)
	}
	descs := r.Descriptors()
	if len(descs) != 2 || descs[0].ID() != a || descs[1].ID() != b {
		t.Fatalf("descriptors not ordered by id")
	}
}

func TestIDForStable(t *testing.T) {
	first := IDFor[neverRegistered]()
	for i := 0; i < 10; i++ {
		if got := IDFor[neverRegistered](); got != first {
			t.Fatalf("IDFor changed from %d to %d", first, got)
		}
	}
	if IDFor[Health]() != HealthComponent.ID() {
		t.Fatalf("IDFor disagrees with registered handle")
	}
}

func TestReflectionOfUnregisteredPanics(t *testing.T) {
	expectPanic(t, ErrNotRegistered, func() {
		_ = ReflectionFor[neverRegistered]()
	})
}

func TestImplicitTypeUpgradesOnRegister(t *testing.T) {
	r := NewRegistry()
	implicit := DescriptorOf[testGadget](r)
	if implicit.Registered() {
		t.Fatalf("implicit descriptor should not be registered")
	}
	h := RegisterIn[testGadget](r, "gadget", nil)
	if h.ID() != implicit.ID() {
		t.Fatalf("registration should keep the implicit id")
	}
	if !h.Descriptor().Registered() || h.Descriptor().Name() != "gadget" {
		t.Fatalf("descriptor not upgraded")
	}
}

func TestNameConflictPanics(t *testing.T) {
	r := NewRegistry()
	RegisterIn[testWidget](r, "thing", nil)
	expectPanic(t, ErrNameConflict, func() {
		RegisterIn[testGadget](r, "thing", nil)
	})
}

func TestPropertyOwnerMismatchOnRegisterPanics(t *testing.T) {
	r := NewRegistry()
	expectPanic(t, ErrPropertyOwner, func() {
		RegisterIn[testGadget](r, "gadget", nil, widgetProps()[0])
	})
}

func TestFactoryReturnsFreshPointers(t *testing.T) {
	r := NewRegistry()
	h := RegisterIn(r, "widget", func() *testWidget { return &testWidget{Count: 3} })
	a := h.Descriptor().New().(*testWidget)
	b := h.Descriptor().New().(*testWidget)
	if a == b {
		t.Fatalf("factory returned shared instance")
	}
	if a.Count != 3 {
		t.Fatalf("custom factory not used")
	}
}

func TestBuiltinsRegistered(t *testing.T) {
	for _, name := range []string{"rigid_body", "character_controller", "health", "hazard", "label", "player_tag"} {
		d, ok := Default().ByName(name)
		if !ok || !d.Registered() {
			t.Fatalf("builtin %q missing", name)
		}
	}
}
