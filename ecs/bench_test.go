package ecs_test

import (
	"testing"

	"github.com/plus3/famecs/ecs"
)

func BenchmarkFamilyIteration(b *testing.B) {
	w := newTestWorld()
	for i := 0; i < 10000; i++ {
		e := w.CreateEntity()
		ecs.MustAdd(e, Position{})
		ecs.MustAdd(e, Velocity{DX: 1, DY: 1})
	}
	w.SpawnPending()
	w.UpdateEntities()
	movers := ecs.NewFamilyBinding[posVel](w)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for rec := range movers.Values() {
			rec.Position.X += rec.Velocity.DX
			rec.Position.Y += rec.Velocity.DY
		}
	}
}

func BenchmarkAddRemoveComponent(b *testing.B) {
	w := newTestWorld()
	ecs.NewFamilyBinding[posVel](w)
	e := w.CreateEntity()
	ecs.MustAdd(e, Position{})
	w.SpawnPending()
	w.UpdateEntities()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ecs.MustAdd(e, Velocity{})
		w.UpdateEntities()
		ecs.Remove[Velocity](e)
		w.UpdateEntities()
	}
}

func BenchmarkSpawnDestroy(b *testing.B) {
	w := newTestWorld()
	ecs.NewFamilyBinding[posOnly](w)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := w.CreateEntity()
		ecs.MustAdd(e, Position{})
		w.SpawnPending()
		w.UpdateEntities()
		_ = e.Destroy()
		w.UpdateEntities()
	}
}

func BenchmarkMaskIncludes(b *testing.B) {
	masks := ecs.NewMaskStorage()
	full := masks.Intern(ecs.MaskOf(1, 2, 3, 4, 5, 6, 7, 8))
	sub := masks.Intern(ecs.MaskOf(2, 5, 8))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		masks.Includes(full, sub)
	}
}
