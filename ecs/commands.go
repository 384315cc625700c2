package ecs

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

type commandKind uint8

const (
	cmdSpawn commandKind = iota
	cmdSpawnFunc
	cmdDestroy
	cmdDestroyInstance
	cmdDestroyReplica
	cmdAdd
	cmdRemove
	cmdPost
	cmdPostInstance
	cmdPostSystem
	cmdExec
	cmdDefer
)

type command struct {
	kind       commandKind
	entity     EntityId
	instance   uuid.UUID
	ct         ComponentType
	name       string
	value      any
	components []any
	spawn      func(*Entity) error
	exec       func(*World) error
	fn         func()
}

// Commands is a queue of deferred world operations. Systems use it to defer
// structural changes, and other goroutines (network, tools) use it to reach the
// world safely. The queue is applied in FIFO order at the start of every Step.
type Commands struct {
	mu       sync.Mutex
	commands []command
	spare    []command
}

func newCommands() *Commands {
	return &Commands{}
}

func (c *Commands) push(cmd command) {
	c.mu.Lock()
	c.commands = append(c.commands, cmd)
	c.mu.Unlock()
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.push(command{kind: cmdDefer, fn: fn})
}

// Exec queues fn to run against the world. A returned error is logged.
func (c *Commands) Exec(fn func(w *World) error) {
	c.push(command{kind: cmdExec, exec: fn})
}

// Spawn queues creation of an entity with the given components.
func (c *Commands) Spawn(components ...any) {
	c.push(command{kind: cmdSpawn, components: components})
}

// SpawnFunc queues creation of an entity built by fn.
func (c *Commands) SpawnFunc(fn func(e *Entity) error) {
	c.push(command{kind: cmdSpawnFunc, spawn: fn})
}

// Destroy queues destruction of an entity.
func (c *Commands) Destroy(entity EntityId) {
	c.push(command{kind: cmdDestroy, entity: entity})
}

// DestroyInstance queues destruction of the entity with the given instance uuid.
func (c *Commands) DestroyInstance(instance uuid.UUID) {
	c.push(command{kind: cmdDestroyInstance, instance: instance})
}

// DestroyReplica queues World.DestroyReplica.
func (c *Commands) DestroyReplica(instance uuid.UUID) {
	c.push(command{kind: cmdDestroyReplica, instance: instance})
}

// AddComponent queues a component addition operation.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.push(command{kind: cmdAdd, entity: entity, value: component})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, ct ComponentType) {
	c.push(command{kind: cmdRemove, entity: entity, ct: ct})
}

// Post queues an external message to an entity.
func (c *Commands) Post(entity EntityId, msg any) {
	c.push(command{kind: cmdPost, entity: entity, value: msg})
}

// PostInstance queues an external message to the entity with the given uuid.
func (c *Commands) PostInstance(instance uuid.UUID, msg any) {
	c.push(command{kind: cmdPostInstance, instance: instance, value: msg})
}

// PostSystem queues an external message to a system inbox.
func (c *Commands) PostSystem(name string, msg any) {
	c.push(command{kind: cmdPostSystem, name: name, value: msg})
}

// flush applies every queued command to w. Commands queued while flushing run on
// the next flush. A failing command does not stop the rest.
func (c *Commands) flush(w *World, report func(error)) {
	c.mu.Lock()
	batch := c.commands
	c.commands = c.spare[:0]
	c.mu.Unlock()

	for i := range batch {
		if err := c.apply(w, &batch[i]); err != nil {
			report(err)
		}
	}

	clear(batch)
	c.mu.Lock()
	c.spare = batch[:0]
	c.mu.Unlock()
}

func (c *Commands) apply(w *World, cmd *command) error {
	switch cmd.kind {
	case cmdSpawn:
		e := w.CreateEntity()
		for _, component := range cmd.components {
			if err := e.AddComponent(component); err != nil {
				e.destroy()
				return eris.Wrap(err, "spawn")
			}
		}
		return nil

	case cmdSpawnFunc:
		e := w.CreateEntity()
		if err := cmd.spawn(e); err != nil {
			e.destroy()
			return eris.Wrap(err, "spawn")
		}
		return nil

	case cmdDestroy:
		e, err := w.Entity(cmd.entity)
		if err != nil {
			return eris.Wrap(err, "destroy")
		}
		return e.Destroy()

	case cmdDestroyInstance:
		e, err := w.EntityByUUID(cmd.instance)
		if err != nil {
			return eris.Wrap(err, "destroy")
		}
		return e.Destroy()

	case cmdDestroyReplica:
		return w.DestroyReplica(cmd.instance)

	case cmdAdd:
		e, err := w.Entity(cmd.entity)
		if err != nil {
			return eris.Wrap(err, "add component")
		}
		return e.AddComponent(cmd.value)

	case cmdRemove:
		e, err := w.Entity(cmd.entity)
		if err != nil {
			return eris.Wrap(err, "remove component")
		}
		e.RemoveComponentById(cmd.ct)
		return nil

	case cmdPost:
		return w.Post(cmd.entity, cmd.value)

	case cmdPostInstance:
		e, err := w.EntityByUUID(cmd.instance)
		if err != nil {
			return eris.Wrap(err, "post")
		}
		return w.Post(e.id, cmd.value)

	case cmdPostSystem:
		return w.PostSystem(cmd.name, cmd.value)

	case cmdExec:
		return cmd.exec(w)

	case cmdDefer:
		cmd.fn()
		return nil
	}
	return nil
}
