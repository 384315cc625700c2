package ecs_test

import (
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallArenaConfig(maxEntities int) ecs.Config {
	cfg := ecs.DefaultConfig()
	cfg.MaxEntities = maxEntities
	return cfg
}

func TestCreateEntityIsPending(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()
	assert.True(t, e.IsPending())
	assert.Equal(t, 1, w.PendingCount())
	assert.Equal(t, 0, w.EntityCount())

	w.SpawnPending()
	assert.False(t, e.IsPending())
	assert.Equal(t, 0, w.PendingCount())
	assert.Equal(t, 1, w.EntityCount())
}

func TestEntityLookup(t *testing.T) {
	w := newTestWorld()
	e := spawn(t, w, Position{})
	id := e.ID()

	found, err := w.Entity(id)
	require.NoError(t, err)
	assert.Same(t, e, found)
	assert.Same(t, e, w.TryEntityByUUID(e.UUID()))

	require.NoError(t, e.Destroy())
	_, err = w.Entity(id)
	assert.ErrorIs(t, err, ecs.ErrEntityDestroyed, "dead until swept")
	_, err = w.EntityByUUID(e.UUID())
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)

	w.UpdateEntities()
	_, err = w.Entity(id)
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
	assert.Nil(t, w.TryEntity(id))
	assert.Nil(t, ecs.ReadComponent[Position](w, id))
}

func TestDestroyedPendingEntityNeverSpawns(t *testing.T) {
	w := newTestWorld()
	var ready int
	w.OnEntityReady(func(*ecs.Entity) { ready++ })

	e := w.CreateEntity()
	require.NoError(t, e.AddComponent(Position{}))
	require.NoError(t, e.Destroy())
	b := ecs.NewFamilyBinding[posOnly](w)

	require.NoError(t, w.Step(0))
	assert.Equal(t, 0, w.EntityCount())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, ready)
}

func TestReadyHooksRunOnce(t *testing.T) {
	w := newTestWorld()
	var global []ecs.EntityId
	w.OnEntityReady(func(e *ecs.Entity) { global = append(global, e.ID()) })

	var local int
	e := w.CreateEntity()
	e.OnReady(func(*ecs.Entity) { local++ })

	w.SpawnPending()
	w.SpawnPending()
	assert.Equal(t, 1, local)
	assert.Equal(t, []ecs.EntityId{e.ID()}, global)
}

func TestEntitiesCreatedByHooksWaitForNextPass(t *testing.T) {
	w := newTestWorld()
	var spawned *ecs.Entity
	parent := w.CreateEntity()
	parent.OnReady(func(*ecs.Entity) {
		spawned = w.CreateEntity()
	})

	w.SpawnPending()
	require.NotNil(t, spawned)
	assert.True(t, spawned.IsPending())
	assert.Equal(t, 1, w.PendingCount())

	w.SpawnPending()
	assert.False(t, spawned.IsPending())
	assert.Equal(t, 2, w.EntityCount())
}

func TestHookDestroyingEntitySkipsLaterHooks(t *testing.T) {
	w := newTestWorld()
	var second int
	w.OnEntityReady(func(e *ecs.Entity) { _ = e.Destroy() })
	w.OnEntityReady(func(*ecs.Entity) { second++ })

	w.CreateEntity()
	w.SpawnPending()
	assert.Equal(t, 1, second, "hooks of one pass all run")
	w.UpdateEntities()
	assert.Equal(t, 0, w.EntityCount())
}

func TestUpdateEntitiesIsNoopWhenClean(t *testing.T) {
	w := newTestWorld()
	spawn(t, w, Position{})
	b := ecs.NewFamilyBinding[posOnly](w)

	w.UpdateEntities()
	w.UpdateEntities()
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 0, w.CollectStats().DirtyCount)
}

func TestIdsAreNotReusedUntilSwept(t *testing.T) {
	w := newTestWorld(ecs.WithConfig(smallArenaConfig(2)))
	a := spawn(t, w)
	spawn(t, w)
	aID := a.ID()

	require.NoError(t, a.Destroy())
	assert.Panics(t, func() { w.CreateEntity() }, "dead entities hold their slot")

	w.UpdateEntities()
	c := w.CreateEntity()
	assert.Equal(t, aID.Index(), c.ID().Index())
	assert.Greater(t, c.ID().Generation(), aID.Generation())
	assert.Nil(t, w.TryEntity(aID), "stale ids never alias the new tenant")
}

func TestArenaExhaustionPanics(t *testing.T) {
	w := newTestWorld(ecs.WithConfig(smallArenaConfig(3)))
	for i := 0; i < 3; i++ {
		w.CreateEntity()
	}
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ecs.ErrPoolExhausted)
	}()
	w.CreateEntity()
}

func TestCreateReplica(t *testing.T) {
	w := newTestWorld()
	e, err := w.CreateReplica(uuidFor(1))
	require.NoError(t, err)
	assert.True(t, e.IsReplicated())
	assert.Equal(t, uuidFor(1), e.UUID())

	_, err = w.CreateReplica(uuidFor(1))
	assert.ErrorIs(t, err, ecs.ErrDuplicateInstance)
}

func TestStepOrderSpawnsBeforeSystems(t *testing.T) {
	w := newTestWorld()
	var seen []int
	counter := &frameFunc{timeline: ecs.VariableUpdate, update: func(frame *ecs.UpdateFrame) error {
		seen = append(seen, frame.World.EntityCount())
		frame.World.CreateEntity()
		return nil
	}}
	require.NoError(t, w.AddSystem(counter))

	w.CreateEntity()
	require.NoError(t, w.Step(0))
	assert.Equal(t, 2, w.EntityCount(), "entities created by systems spawn before the step ends")
	require.NoError(t, w.Step(0))
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, uint64(2), w.StepCount())
}

func TestCloseDestroysEverything(t *testing.T) {
	w := newTestWorld()
	dropped := 0
	root := spawn(t, w, Resource{Dropped: &dropped})
	child := spawn(t, w, Resource{Dropped: &dropped})
	require.NoError(t, child.SetParent(root))
	replica, err := w.CreateReplica(uuidFor(9))
	require.NoError(t, err)
	require.NoError(t, replica.AddComponent(Resource{Dropped: &dropped}))
	w.CreateEntity()

	require.NoError(t, w.Close())
	assert.Equal(t, 0, w.EntityCount())
	assert.Equal(t, 0, w.PendingCount())
	assert.Equal(t, 3, dropped)
}
