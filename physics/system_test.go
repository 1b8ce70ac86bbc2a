package physics

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type simulation struct {
	world  *ecs.World
	space  *Space
	layer  *CollisionLayer
	system *PhysicsSystem
	step   float64
}

func newSimulation(t *testing.T) *simulation {
	t.Helper()
	cfg := config.Default()
	m := ecs.NewEntityManager()
	w := ecs.NewWorld(m)
	space := NewSpace(cfg.Physics, nil)
	layer := NewCollisionLayer(space, m)
	system := NewPhysicsSystem(space, layer)
	w.AddSystem(system)
	return &simulation{world: w, space: space, layer: layer, system: system, step: cfg.Physics.TimeStep}
}

func (s *simulation) spawnGround() *ecs.Entity {
	e := s.world.Entities().Emplace(common.Vec3{}, common.Identity(), common.One)
	ecs.AddValue(e, component.RigidBody{Width: 10, Height: 1, Static: true, Friction: 1})
	return e
}

func (s *simulation) spawnBox(y float64) *ecs.Entity {
	e := s.world.Entities().Emplace(common.V3(0, y, 0), common.Identity(), common.One)
	ecs.AddValue(e, component.RigidBody{Width: 1, Height: 1, Mass: 1, Friction: 1})
	return e
}

func TestSpaceReportsOverlap(t *testing.T) {
	sim := newSimulation(t)
	ground := sim.spawnGround()
	box := sim.spawnBox(0.8)

	groundShapes, ok := sim.space.CollisionObjects(ground)
	require.True(t, ok)
	require.Len(t, groundShapes, 1)
	boxShapes, ok := sim.space.CollisionObjects(box)
	require.True(t, ok)
	require.Len(t, boxShapes, 1)

	sim.space.Step(sim.step)
	manifolds := sim.space.Manifolds()
	require.Len(t, manifolds, 1)
	assert.True(t, manifolds[0].Touching())
	pair := []Handle{manifolds[0].A, manifolds[0].B}
	assert.ElementsMatch(t, []Handle{groundShapes[0], boxShapes[0]}, pair)
}

func TestCollisionObjectsWithoutPhysics(t *testing.T) {
	sim := newSimulation(t)
	e := sim.world.Entities().Emplace(common.Vec3{}, common.Identity(), common.One)
	handles, ok := sim.space.CollisionObjects(e)
	assert.False(t, ok)
	assert.Empty(t, handles)
}

func TestPhysicsSystemCollisionEpisode(t *testing.T) {
	sim := newSimulation(t)
	ground := sim.spawnGround()
	box := sim.spawnBox(0.8)

	var begins, ends int
	require.NoError(t, sim.layer.RegisterCollisionBeginCallback(box, ground, func(a, b *ecs.Entity) {
		assert.Equal(t, box.ID(), a.ID())
		begins++
	}))
	require.NoError(t, sim.layer.RegisterCollisionEndCallback(box, ground, func(a, b *ecs.Entity) {
		ends++
	}))

	var events []ecs.Event
	sim.world.AddSystem(ecs.SystemFunc(func(w *ecs.World, dt float64) {
		events = append(events, w.Events().Drain()...)
	}))

	sim.world.Tick(sim.step)
	assert.Equal(t, 1, begins)
	assert.Equal(t, 0, ends)
	assert.True(t, sim.layer.DidCollide(ground, box))
	require.NotEmpty(t, events)
	assert.Equal(t, EventCollisionBegin, events[0].Type)

	rb := ecs.Get[component.RigidBody](box)
	require.NotNil(t, rb)
	rb.Body.SetPosition(cp.Vector{X: 0, Y: 100})
	rb.Body.SetVelocity(0, 0)

	sim.world.Tick(sim.step)
	sim.world.Tick(sim.step)
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, ends)
	assert.Greater(t, box.Position.Y, 50.0)
}

func TestPhysicsSystemWritesBackTransform(t *testing.T) {
	sim := newSimulation(t)
	box := sim.spawnBox(10)

	for i := 0; i < 10; i++ {
		sim.world.Tick(sim.step)
	}
	assert.Less(t, box.Position.Y, 10.0, "gravity should pull the box down")
	assert.InDelta(t, 0, box.Position.X, 1e-9)
}

func TestCharacterGrounded(t *testing.T) {
	sim := newSimulation(t)
	sim.spawnGround()

	player := sim.world.Entities().Emplace(common.V3(0, 0.9, 0), common.Identity(), common.One)
	cc := ecs.AddValue(player, component.CharacterController{Width: 1, Height: 1})

	sim.world.Tick(sim.step)
	assert.True(t, cc.Grounded)

	cc.Velocity = common.V3(0, 600, 0)
	sim.world.Tick(sim.step)
	sim.world.Tick(sim.step)
	assert.False(t, cc.Grounded)
	assert.Greater(t, player.Position.Y, 5.0)
}

func TestDestroyReleasesBody(t *testing.T) {
	sim := newSimulation(t)
	box := sim.spawnBox(3)
	sim.world.Tick(sim.step)

	rb := ecs.Get[component.RigidBody](box)
	require.NotNil(t, rb)
	body := rb.Body
	require.True(t, sim.space.Native().ContainsBody(body))

	sim.world.Entities().Erase(box.ID())
	sim.world.Tick(sim.step)
	assert.False(t, sim.space.Native().ContainsBody(body))
	assert.Nil(t, sim.world.Entities().Resolve(box.ID()))
}

func TestDestroyedEntityEndReachesSystems(t *testing.T) {
	sim := newSimulation(t)
	ground := sim.spawnGround()
	box := sim.spawnBox(0.8)

	ends := 0
	require.NoError(t, sim.layer.RegisterCollisionEndCallback(box, ground, func(a, b *ecs.Entity) {
		ends++
	}))

	var seen []string
	sim.world.AddSystem(ecs.SystemFunc(func(w *ecs.World, dt float64) {
		for _, evt := range w.Events().Peek() {
			seen = append(seen, evt.Type)
		}
	}))

	sim.world.Tick(sim.step)
	require.True(t, sim.layer.DidCollide(box, ground))

	sim.world.Entities().Erase(box.ID())
	sim.world.Tick(sim.step)
	sim.world.Tick(sim.step)

	assert.Equal(t, 1, ends)
	assert.Contains(t, seen, EventCollisionEnd)
	assert.Equal(t, EventCollisionEnd, seen[len(seen)-1])
	assert.Equal(t, 0, sim.layer.OpenEpisodes())
}
