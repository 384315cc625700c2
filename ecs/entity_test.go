package ecs_test

import (
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComponent(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()

	require.NoError(t, e.AddComponent(Position{X: 1, Y: 2}))
	require.NoError(t, e.AddComponent(&Velocity{DX: 3}))
	require.NoError(t, e.AddComponent(Score(7)))

	assert.True(t, e.IsDirty())
	assert.Equal(t, 3, e.ComponentCount())
	assert.Equal(t, &Position{X: 1, Y: 2}, ecs.Get[Position](e))
	assert.Equal(t, &Velocity{DX: 3}, ecs.Get[Velocity](e))
	assert.Equal(t, Score(7), *ecs.Get[Score](e))
	assert.Nil(t, ecs.Get[Health](e))
	assert.True(t, ecs.Has[Position](e))
	assert.False(t, ecs.Has[Health](e))
}

func TestAddComponentErrors(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		w := newTestWorld()
		e := w.CreateEntity()
		require.NoError(t, e.AddComponent(Position{}))
		err := e.AddComponent(Position{X: 9})
		assert.True(t, eris.Is(err, ecs.ErrDuplicateComponent))
		assert.Equal(t, float32(0), ecs.Get[Position](e).X, "the original is untouched")
	})

	t.Run("unregistered", func(t *testing.T) {
		w := newTestWorld()
		e := w.CreateEntity()
		err := e.AddComponent(struct{ Z int }{})
		assert.True(t, eris.Is(err, ecs.ErrUnknownComponent))
		_, err = ecs.Add(e, 3.5)
		assert.True(t, eris.Is(err, ecs.ErrUnknownComponent))
	})

	t.Run("too many", func(t *testing.T) {
		cfg := ecs.DefaultConfig()
		cfg.MaxEntityComponents = 2
		w := newTestWorld(ecs.WithConfig(cfg))
		e := w.CreateEntity()
		require.NoError(t, e.AddComponent(Position{}))
		require.NoError(t, e.AddComponent(Velocity{}))
		err := e.AddComponent(Name{})
		assert.True(t, eris.Is(err, ecs.ErrTooManyComponents))
		assert.Equal(t, 2, e.ComponentCount())
	})

	t.Run("destroyed", func(t *testing.T) {
		w := newTestWorld()
		e := w.CreateEntity()
		require.NoError(t, e.Destroy())
		err := e.AddComponent(Position{})
		assert.True(t, eris.Is(err, ecs.ErrEntityDestroyed))
	})

	t.Run("must add panics", func(t *testing.T) {
		w := newTestWorld()
		e := w.CreateEntity()
		ecs.MustAdd(e, Position{})
		assert.Panics(t, func() { ecs.MustAdd(e, Position{}) })
	})
}

func TestRemoveComponentIsDeferred(t *testing.T) {
	w := newTestWorld()
	e := spawn(t, w, Position{X: 1}, Velocity{DX: 2}, Name{Value: "n"})

	vel := ecs.Get[Velocity](e)
	require.True(t, ecs.Remove[Velocity](e))
	assert.False(t, ecs.Remove[Velocity](e), "already detached")

	assert.True(t, e.IsDirty())
	assert.False(t, ecs.Has[Velocity](e))
	assert.Equal(t, 2, e.ComponentCount())
	assert.Equal(t, float32(2), vel.DX, "stale component stays valid until refresh")

	// Live entries stay contiguous.
	assert.ElementsMatch(t, []ecs.ComponentType{
		mustType[Position](t, w), mustType[Name](t, w),
	}, e.ComponentTypes())

	e.Refresh()
	assert.False(t, e.IsDirty())
	assert.Equal(t, float32(0), vel.DX, "refresh reclaims stale components")
}

func TestAddAfterRemoveReusesStaleSlot(t *testing.T) {
	w := newTestWorld()
	e := spawn(t, w, Position{X: 1}, Velocity{DX: 2})

	require.True(t, ecs.Remove[Position](e))
	require.NoError(t, e.AddComponent(Health{Current: 5}))
	require.NoError(t, e.AddComponent(Position{X: 10}))

	assert.Equal(t, 3, e.ComponentCount())
	assert.Equal(t, float32(10), ecs.Get[Position](e).X)
	assert.Equal(t, float32(2), ecs.Get[Velocity](e).DX)
	assert.Equal(t, 5, ecs.Get[Health](e).Current)

	e.Refresh()
	assert.Equal(t, 3, e.ComponentCount())
	assert.Equal(t, float32(10), ecs.Get[Position](e).X)
}

func TestRefreshRecomputesMask(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()
	require.NoError(t, e.AddComponent(Position{}))
	require.NoError(t, e.AddComponent(Velocity{}))

	assert.Equal(t, ecs.EmptyMask, e.Mask(), "mask is only recomputed by refresh")
	e.Refresh()
	assert.False(t, e.IsDirty())

	want := ecs.MaskOf(mustType[Position](t, w), mustType[Velocity](t, w))
	assert.Equal(t, w.Masks().Intern(want), e.Mask())

	e.Refresh()
	assert.Equal(t, w.Masks().Intern(want), e.Mask(), "refresh of a clean entity is a no-op")
}

func TestDisabledEntityHasEmptyMask(t *testing.T) {
	w := newTestWorld()
	e := spawn(t, w, Position{}, Velocity{})
	require.NotEqual(t, ecs.EmptyMask, e.Mask())

	e.SetEnabled(false)
	assert.True(t, e.IsDirty())
	e.Refresh()
	assert.Equal(t, ecs.EmptyMask, e.Mask())
	assert.Equal(t, 2, e.ComponentCount(), "components stay attached")

	e.SetEnabled(true)
	e.Refresh()
	assert.NotEqual(t, ecs.EmptyMask, e.Mask())
}

func TestDestroy(t *testing.T) {
	w := newTestWorld()
	e := spawn(t, w, Position{})

	require.NoError(t, e.Destroy())
	assert.False(t, e.IsAlive())
	assert.True(t, e.IsDirty())

	err := e.Destroy()
	assert.True(t, eris.Is(err, ecs.ErrEntityDestroyed))
}

func TestDestroyReplicaNeedsAuthority(t *testing.T) {
	w := newTestWorld()
	replica, err := w.CreateReplica(uuidFor(1))
	require.NoError(t, err)
	assert.True(t, replica.IsReplicated())

	err = replica.Destroy()
	assert.True(t, eris.Is(err, ecs.ErrReplicaAuthority))
	assert.True(t, replica.IsAlive())

	cfg := ecs.DefaultConfig()
	cfg.ReplicaAuthority = true
	authority := newTestWorld(ecs.WithConfig(cfg))
	replica, err = authority.CreateReplica(uuidFor(1))
	require.NoError(t, err)
	assert.NoError(t, replica.Destroy())
}

func TestDropperRunsOnReclaim(t *testing.T) {
	w := newTestWorld()
	dropped := 0
	e := spawn(t, w, Resource{ID: 1, Dropped: &dropped})

	ecs.Remove[Resource](e)
	assert.Equal(t, 0, dropped)
	e.Refresh()
	assert.Equal(t, 1, dropped)

	require.NoError(t, e.AddComponent(Resource{ID: 2, Dropped: &dropped}))
	require.NoError(t, e.Destroy())
	w.UpdateEntities()
	assert.Equal(t, 2, dropped, "destroyed entities release every component")
}

func TestComponentValue(t *testing.T) {
	w := newTestWorld()
	e := spawn(t, w, Name{Value: "box"})

	ct := mustType[Name](t, w)
	value, ok := e.ComponentValue(ct).(*Name)
	require.True(t, ok)
	value.Value = "changed"
	assert.Equal(t, "changed", ecs.Get[Name](e).Value)

	assert.Nil(t, e.ComponentValue(mustType[Position](t, w)))
	assert.Nil(t, e.Component(mustType[Position](t, w)))
}

func mustType[T any](t testing.TB, w *ecs.World) ecs.ComponentType {
	t.Helper()
	ct, ok := ecs.ComponentTypeOf[T](w.Registry())
	require.True(t, ok)
	return ct
}
