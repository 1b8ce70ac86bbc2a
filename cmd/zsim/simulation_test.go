package main

import (
	"testing"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
	"github.com/milk9111/simcore/prefabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findByLabel(t *testing.T, m *ecs.EntityManager, name string) *ecs.Entity {
	t.Helper()
	for _, e := range ecs.Query(m, component.LabelComponent.ID()) {
		if ecs.Get[component.Label](e).Name == name {
			return e
		}
	}
	return nil
}

func TestDefaultSceneDamagesPlayer(t *testing.T) {
	sim, err := newSimulation(config.Default(), log.Nop())
	require.NoError(t, err)
	defer sim.Close()

	player := findByLabel(t, sim.world.Entities(), "player")
	require.NotNil(t, player)
	require.NotNil(t, findByLabel(t, sim.world.Entities(), "patroller"))

	require.NoError(t, sim.Run(240))

	health := ecs.Get[component.Health](player)
	require.NotNil(t, health)
	assert.Less(t, health.Current, 10)
	assert.Greater(t, player.Position.X, 0.0)
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Physics.TimeStep = 0
	_, err := newSimulation(cfg, log.Nop())
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPatrollerTurnsAtCrate(t *testing.T) {
	sim, err := newSimulation(config.Default(), log.Nop())
	require.NoError(t, err)
	defer sim.Close()

	patroller := findByLabel(t, sim.world.Entities(), "patroller")
	require.NotNil(t, patroller)
	cc := ecs.Get[component.CharacterController](patroller)
	require.NotNil(t, cc)
	require.Greater(t, cc.Velocity.X, 0.0)

	// the timed turn comes at 120 updates; contact with the crate is sooner
	require.NoError(t, sim.Run(100))
	assert.Less(t, cc.Velocity.X, 0.0)
}

func TestScriptChangeInvalidatesRuntime(t *testing.T) {
	sim, err := newSimulation(config.Default(), log.Nop())
	require.NoError(t, err)
	defer sim.Close()

	patroller := findByLabel(t, sim.world.Entities(), "patroller")
	require.NotNil(t, patroller)
	require.NoError(t, sim.Run(1))
	require.NotNil(t, sim.scripts.Runner(patroller.ID()))

	sim.apply(prefabs.Change{Path: "/elsewhere/scripts/patrol.tengo", Kind: prefabs.ChangeScript})
	assert.Nil(t, sim.scripts.Runner(patroller.ID()))
}
