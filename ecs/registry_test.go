package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/stretchr/testify/assert"
)

func TestRegisterComponent(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	pos := ecs.RegisterComponent[Position](registry)
	vel := ecs.RegisterComponent[Velocity](registry)

	assert.NotEqual(t, pos, vel)
	assert.Equal(t, pos, ecs.RegisterComponent[Position](registry), "registration is idempotent")
	assert.Equal(t, 2, registry.Len())

	ct, ok := ecs.ComponentTypeOf[Velocity](registry)
	assert.True(t, ok)
	assert.Equal(t, vel, ct)

	ct, ok = registry.TypeOf(&Position{})
	assert.True(t, ok)
	assert.Equal(t, pos, ct)
	ct, ok = registry.TypeOf(Position{})
	assert.True(t, ok)
	assert.Equal(t, pos, ct)

	_, ok = registry.TypeOf(Health{})
	assert.False(t, ok)
	_, ok = registry.TypeOf(nil)
	assert.False(t, ok)

	assert.Equal(t, "Position", registry.Name(pos))
	assert.Equal(t, reflect.TypeOf(Velocity{}), registry.Type(vel))
	named, ok := registry.Lookup("Velocity")
	assert.True(t, ok)
	assert.Equal(t, vel, named)
	assert.Equal(t, []string{"Position", "Velocity"}, registry.Names(ecs.MaskOf(pos, vel)))
}

func TestRegisterComponentNamed(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ct := ecs.RegisterComponentNamed[Position](registry, "pos")

	got, ok := registry.Lookup("pos")
	assert.True(t, ok)
	assert.Equal(t, ct, got)

	assert.Panics(t, func() {
		ecs.RegisterComponentNamed[Velocity](registry, "pos")
	}, "names are unique")
}

func TestRegisterComponentRejectsReferenceTypes(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	assert.Panics(t, func() { ecs.RegisterComponent[*Position](registry) })
	assert.Panics(t, func() { ecs.RegisterComponent[map[string]int](registry) })
	assert.Panics(t, func() { ecs.RegisterComponent[chan int](registry) })
	assert.Panics(t, func() { ecs.RegisterComponent[func()](registry) })
	assert.Panics(t, func() { ecs.RegisterComponent[any](registry) })
}

func TestRegisterMessage(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	dmg := ecs.RegisterMessage[Damage](registry)
	heal := ecs.RegisterMessage[Heal](registry)

	assert.NotEqual(t, dmg, heal)
	assert.Equal(t, dmg, ecs.RegisterMessage[Damage](registry))

	mt, ok := registry.MessageTypeOf(Heal{Amount: 3})
	assert.True(t, ok)
	assert.Equal(t, heal, mt)

	_, ok = registry.MessageTypeOf(&Heal{})
	assert.False(t, ok, "messages are matched by exact type")

	named, ok := registry.LookupMessage("Damage")
	assert.True(t, ok)
	assert.Equal(t, dmg, named)
	assert.Equal(t, "Heal", registry.MessageName(heal))
	assert.Equal(t, reflect.TypeOf(Damage{}), registry.MessageGoType(dmg))
}
