package ecs_test

import (
	"fmt"

	"github.com/plus3/famecs/ecs"
)

type movement struct {
	Movers *ecs.FamilyBinding[struct {
		*Position
		Velocity *Velocity `ecs:"read"`
	}]
}

func (*movement) Timeline() ecs.Timeline { return ecs.FixedUpdate }

func (m *movement) Update(frame *ecs.UpdateFrame) error {
	dt := float32(frame.DeltaTime)
	for rec := range m.Movers.Values() {
		rec.Position.X += rec.Velocity.DX * dt
		rec.Position.Y += rec.Velocity.DY * dt
	}
	return nil
}

func Example() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)

	cfg := ecs.DefaultConfig()
	cfg.FixedTimestep = 0.5
	world := ecs.NewWorld(registry, ecs.WithConfig(cfg))
	world.MustAddSystem(&movement{})

	ball := world.CreateEntity()
	ecs.MustAdd(ball, Position{})
	ecs.MustAdd(ball, Velocity{DX: 2, DY: -1})

	for i := 0; i < 4; i++ {
		_ = world.Step(0.5)
	}
	fmt.Println(*ecs.Get[Position](ball))
	// Output: {4 -2}
}

func ExampleFamilyBinding_Get() {
	world := newTestWorld()
	e := world.CreateEntity()
	ecs.MustAdd(e, Position{X: 3})
	world.SpawnPending()
	world.UpdateEntities()

	positions := ecs.NewFamilyBinding[struct {
		*Position
		Name *Name `ecs:"optional"`
	}](world)

	rec, ok := positions.Get(e.ID())
	fmt.Println(ok, rec.Position.X, rec.Name == nil)
	// Output: true 3 true
}

func ExampleCommands() {
	world := newTestWorld()
	world.Commands().Spawn(Position{X: 1}, Name{Value: "queued"})
	fmt.Println(world.EntityCount())

	_ = world.Step(0)
	for e := range world.Entities() {
		fmt.Println(ecs.Get[Name](e).Value)
	}
	// Output:
	// 0
	// queued
}
