package main

import "github.com/plus3/famecs/ecs"

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Sprite struct {
	Color [3]uint8
	Scale float32
}

// Creature is an animal that wanders, forages and breeds.
type Creature struct {
	Hunger    float32
	MaxHunger float32
	Speed     float32
	Age       float32 `purpose:"save"`
	Lifespan  float32
	Births    int `purpose:"save"`
}

// Bush is a food source that regrows over time.
type Bush struct {
	Amount    int
	MaxAmount int
	Regrowth  float32
	growth    float32
}

// Bite asks a bush for food on behalf of Eater.
type Bite struct {
	Eater ecs.EntityId
}

// Fed tells a creature how much food it got.
type Fed struct {
	Amount int
}

// Census is the per-frame population snapshot shared with render windows.
type Census struct {
	Day       int
	Creatures int
	Bushes    int
	Food      int
	Births    int
	Deaths    int
}

// SimConfig holds the world-sim tuning knobs. It is a world service.
type SimConfig struct {
	Width, Height  float32
	BiteRange      float32
	HungerRate     float32
	BreedThreshold float32
	DayLength      float32
	MaxCreatures   int
}

func defaultSimConfig() *SimConfig {
	return &SimConfig{
		Width:          100,
		Height:         100,
		BiteRange:      1.5,
		HungerRate:     2,
		BreedThreshold: 0.2,
		DayLength:      30,
		MaxCreatures:   400,
	}
}

func newRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Sprite](registry)
	ecs.RegisterComponent[Creature](registry)
	ecs.RegisterComponent[Bush](registry)
	ecs.RegisterMessage[Bite](registry)
	ecs.RegisterMessage[Fed](registry)
	return registry
}
