package ecs_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/plus3/famecs/ecs"
	"github.com/stretchr/testify/require"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int `purpose:"save,network"`
	Max     int `purpose:"save,prefab"`
}

type PlayerController struct{}

type AI struct {
	State int
}

// Custom primitive types for testing non-struct components
type Score int32
type Tag string

type Inventory struct {
	Items []string
	Owner string `purpose:"-"`
}

// Resource is a component owning something that must be released.
type Resource struct {
	ID      int
	Dropped *int
}

func (r *Resource) Drop() {
	if r.Dropped != nil {
		*r.Dropped++
	}
}

// Message types
type Damage struct {
	Amount int
}

type Heal struct {
	Amount int
}

type Ping struct{}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[PlayerController](registry)
	ecs.RegisterComponent[AI](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Inventory](registry)
	ecs.RegisterComponent[Resource](registry)
	ecs.RegisterMessage[Damage](registry)
	ecs.RegisterMessage[Heal](registry)
	ecs.RegisterMessage[Ping](registry)
	return registry
}

func newTestWorld(opts ...ecs.Option) *ecs.World {
	return ecs.NewWorld(newTestRegistry(), opts...)
}

// spawn creates an entity with components and promotes it to live with its
// family membership reconciled.
func spawn(t testing.TB, w *ecs.World, components ...any) *ecs.Entity {
	t.Helper()
	e := w.CreateEntity()
	for _, c := range components {
		require.NoError(t, e.AddComponent(c))
	}
	w.SpawnPending()
	w.UpdateEntities()
	return e
}

// uuidFor returns a deterministic instance id.
func uuidFor(n byte) uuid.UUID {
	var u uuid.UUID
	u[15] = n
	return u
}
