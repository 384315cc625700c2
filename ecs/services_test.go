package ecs_test

import (
	"testing"
	"time"

	"github.com/plus3/famecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	Now float64
}

type assetCache struct {
	loads int
}

func TestRegisterService(t *testing.T) {
	w := newTestWorld()
	_, err := ecs.Service[*clock](w)
	assert.ErrorIs(t, err, ecs.ErrServiceNotFound)

	c := &clock{Now: 1}
	ecs.RegisterService(w, c)
	got, err := ecs.Service[*clock](w)
	require.NoError(t, err)
	assert.Same(t, c, got)

	byName, err := w.ServiceByName("clock")
	require.NoError(t, err)
	assert.Same(t, c, byName)

	replacement := &clock{Now: 2}
	ecs.RegisterNamedService(w, "wallclock", replacement)
	got, _ = ecs.Service[*clock](w)
	assert.Same(t, replacement, got, "registering a type again replaces it")
	_, err = w.ServiceByName("clock")
	assert.ErrorIs(t, err, ecs.ErrServiceNotFound)
}

func TestProvideServiceIsLazy(t *testing.T) {
	w := newTestWorld()
	calls := 0
	ecs.ProvideService(w, func() *assetCache {
		calls++
		return &assetCache{}
	})
	assert.Equal(t, 0, calls)

	first, ok := ecs.TryService[*assetCache](w)
	require.True(t, ok)
	second, ok := ecs.TryService[*assetCache](w)
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

type assetLoader struct {
	cache *assetCache
	clock *clock
}

func TestProvidedServiceDependsOnAnother(t *testing.T) {
	w := newTestWorld()
	ecs.ProvideService(w, func() *assetCache { return &assetCache{} })
	ecs.ProvideService(w, func() *assetLoader {
		cache, _ := ecs.Service[*assetCache](w)
		c, _ := ecs.TryService[*clock](w)
		return &assetLoader{cache: cache, clock: c}
	})

	done := make(chan *assetLoader, 1)
	go func() {
		loader, _ := ecs.Service[*assetLoader](w)
		done <- loader
	}()

	var loader *assetLoader
	select {
	case loader = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resolving a provided service that looks up another did not return")
	}

	cache, err := ecs.Service[*assetCache](w)
	require.NoError(t, err)
	require.NotNil(t, loader)
	assert.Same(t, cache, loader.cache)
	assert.Nil(t, loader.clock)

	byName, err := w.ServiceByName("assetLoader")
	require.NoError(t, err)
	assert.Same(t, loader, byName)
}

func TestValueServices(t *testing.T) {
	w := newTestWorld()
	ecs.RegisterService(w, clock{Now: 3})
	c, ok := ecs.TryService[clock](w)
	require.True(t, ok)
	assert.Equal(t, 3.0, c.Now)

	_, ok = ecs.TryService[*clock](w)
	assert.False(t, ok, "pointer and value types are distinct services")
}

type cacheUser struct {
	Cache ecs.ServiceRef[*assetCache]
	Clock *ecs.ServiceRef[*clock]
}

func (*cacheUser) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (u *cacheUser) Update(*ecs.UpdateFrame) error {
	u.Cache.Get().loads++
	if c, ok := u.Clock.TryGet(); ok {
		c.Now++
	}
	return nil
}

func TestServiceRefFields(t *testing.T) {
	w := newTestWorld()
	cache := &assetCache{}
	ecs.RegisterService(w, cache)

	u := &cacheUser{}
	require.NoError(t, w.AddSystem(u))
	require.NotNil(t, u.Clock)

	require.NoError(t, w.Step(0))
	assert.Equal(t, 1, cache.loads)

	c := &clock{}
	ecs.RegisterService(w, c)
	require.NoError(t, w.Step(0))
	assert.Equal(t, 2, cache.loads)
	assert.Equal(t, 1.0, c.Now, "unresolved refs retry every lookup")
}

func TestServiceRefGetPanicsWhenMissing(t *testing.T) {
	w := newTestWorld()
	var ref ecs.ServiceRef[*clock]
	ref.Bind(w)
	assert.Panics(t, func() { ref.Get() })
}
