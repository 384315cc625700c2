package ecs

import (
	"iter"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// World owns entities, families, systems and services, and drives the per-frame
// update and render passes. A World is not safe for concurrent use except for
// Commands, which any goroutine may feed, and Render in overlap mode.
type World struct {
	registry *ComponentRegistry
	cfg      Config
	logger   *zap.Logger
	uncaught UncaughtHandler

	masks *MaskStorage
	arena *entityPool
	pools []componentPool

	live     []*Entity
	pending  []*Entity
	spawning []*Entity
	dirty    []*Entity
	identity map[uuid.UUID]EntityId

	families    []*Family
	familyIndex map[FamilyKey]*Family

	scheduler *scheduler
	services  *services
	commands  *Commands
	resources Resources

	readyHooks []func(*Entity)

	front, back *FrameData
	step        uint64
	stepping    bool
	accumulator float64
	messageSeq  uint64

	externalTargets  []EntityId
	hierarchyVersion uint64

	closing bool
	closed  bool
}

// NewWorld creates a world over the component schema of registry.
func NewWorld(registry *ComponentRegistry, opts ...Option) *World {
	w := &World{
		registry:    registry,
		cfg:         DefaultConfig(),
		logger:      zap.NewNop(),
		masks:       NewMaskStorage(),
		identity:    make(map[uuid.UUID]EntityId),
		familyIndex: make(map[FamilyKey]*Family),
		scheduler:   newScheduler(),
		services:    newServices(),
		commands:    newCommands(),
		front:       newFrameData(),
		back:        newFrameData(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.uncaught == nil {
		w.uncaught = w.logSystemError
	}
	w.arena = newEntityPool(w.cfg.MaxEntities)
	return w
}

func (w *World) logSystemError(err *SystemError) {
	w.logger.Warn("system failed",
		zap.Stringer("timeline", err.Timeline),
		zap.String("system", err.System),
		zap.Error(err.Err))
}

// Registry returns the component schema.
func (w *World) Registry() *ComponentRegistry { return w.registry }

// Masks returns the world's mask interning table.
func (w *World) Masks() *MaskStorage { return w.masks }

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger { return w.logger }

// Config returns the world's configuration.
func (w *World) Config() Config { return w.cfg }

// Commands returns the deferred command queue flushed at the start of each Step.
func (w *World) Commands() *Commands { return w.commands }

// StepCount returns the number of completed or running steps.
func (w *World) StepCount() uint64 { return w.step }

// HierarchyVersion changes whenever any entity is reparented.
func (w *World) HierarchyVersion() uint64 { return w.hierarchyVersion }

// pool returns the component pool for ct, creating it on first use.
func (w *World) pool(ct ComponentType) componentPool {
	if int(ct) >= len(w.pools) {
		w.pools = slices.Grow(w.pools, int(ct)+1-len(w.pools))[:int(ct)+1]
	}
	p := w.pools[ct]
	if p == nil {
		p = w.registry.components[ct].newPool()
		w.pools[ct] = p
	}
	return p
}

// CreateEntity allocates a pending entity. It joins families after the next
// SpawnPending and UpdateEntities passes.
func (w *World) CreateEntity() *Entity {
	return w.createEntity(uuid.New())
}

// CreateReplica allocates a pending entity mirroring a remote instance. Replicas
// cannot be destroyed locally unless Config.ReplicaAuthority is set.
func (w *World) CreateReplica(instance uuid.UUID) (*Entity, error) {
	if _, taken := w.identity[instance]; taken {
		return nil, eris.Wrapf(ErrDuplicateInstance, "%s", instance)
	}
	e := w.createEntity(instance)
	e.replicated = true
	return e, nil
}

func (w *World) createEntity(instance uuid.UUID) *Entity {
	e := w.arena.alloc()
	e.init(w, instance)
	w.identity[instance] = e.id
	w.pending = append(w.pending, e)
	return e
}

// DestroyReplica destroys a replicated entity on behalf of the remote peer that
// owns it. Local entities are refused with ErrReplicaAuthority.
func (w *World) DestroyReplica(instance uuid.UUID) error {
	e, err := w.EntityByUUID(instance)
	if err != nil {
		return err
	}
	if !e.replicated {
		return eris.Wrapf(ErrReplicaAuthority, "%s is owned locally", instance)
	}
	e.destroy()
	return nil
}

// Entity returns the entity for id.
func (w *World) Entity(id EntityId) (*Entity, error) {
	e := w.arena.get(id)
	if e == nil {
		return nil, eris.Wrapf(ErrEntityNotFound, "%s", id)
	}
	if !e.alive {
		return nil, eris.Wrapf(ErrEntityDestroyed, "%s", id)
	}
	return e, nil
}

// TryEntity returns the live entity for id, or nil.
func (w *World) TryEntity(id EntityId) *Entity {
	if e := w.arena.get(id); e != nil && e.alive {
		return e
	}
	return nil
}

// EntityByUUID returns the entity with the given instance id.
func (w *World) EntityByUUID(instance uuid.UUID) (*Entity, error) {
	if e := w.TryEntityByUUID(instance); e != nil {
		return e, nil
	}
	return nil, eris.Wrapf(ErrEntityNotFound, "instance %s", instance)
}

// TryEntityByUUID returns the entity with the given instance id, or nil.
func (w *World) TryEntityByUUID(instance uuid.UUID) *Entity {
	id, ok := w.identity[instance]
	if !ok {
		return nil
	}
	return w.TryEntity(id)
}

// Entities returns an iterator over the spawned entities.
func (w *World) Entities() iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for _, e := range w.live {
			if !yield(e) {
				return
			}
		}
	}
}

// EntityCount returns the number of spawned entities, including destroyed ones not
// yet swept.
func (w *World) EntityCount() int { return len(w.live) }

// PendingCount returns the number of entities waiting for SpawnPending.
func (w *World) PendingCount() int { return len(w.pending) }

// OnEntityReady registers a hook called for every entity promoted to live.
func (w *World) OnEntityReady(fn func(*Entity)) {
	w.readyHooks = append(w.readyHooks, fn)
}

// ReadComponent returns the live component of type T on entity id, or nil.
func ReadComponent[T any](w *World, id EntityId) *T {
	e := w.TryEntity(id)
	if e == nil {
		return nil
	}
	return Get[T](e)
}

func (w *World) enqueue(e *Entity) {
	if e.pending || e.queued {
		return
	}
	e.queued = true
	w.dirty = append(w.dirty, e)
}

func (w *World) onDestroyed(e *Entity) {
	if id, ok := w.identity[e.instance]; ok && id == e.id {
		delete(w.identity, e.instance)
	}
}

// SpawnPending promotes pending entities to live and runs their ready hooks once.
// Entities created by a hook wait for the next pass.
func (w *World) SpawnPending() {
	if len(w.pending) == 0 {
		return
	}

	batch := w.pending
	w.pending = w.spawning[:0]

	for _, e := range batch {
		if !e.alive {
			w.reclaim(e)
			continue
		}
		e.pending = false
		e.liveIndex = len(w.live)
		w.live = append(w.live, e)
		if e.dirty {
			w.enqueue(e)
		}
	}

	for _, e := range batch {
		if !e.alive || e.pending {
			continue
		}
		if fn := e.onReady; fn != nil {
			e.onReady = nil
			fn(e)
		}
		for _, hook := range w.readyHooks {
			hook(e)
		}
	}

	clear(batch)
	w.spawning = batch[:0]
}

// UpdateEntities reconciles every dirty entity with the families: dead entities
// are removed and reclaimed, live ones are refreshed and moved in or out of the
// families whose inclusion mask flipped. It returns immediately when nothing is
// dirty.
func (w *World) UpdateEntities() {
	if len(w.dirty) == 0 {
		return
	}

	for i := 0; i < len(w.dirty); i++ {
		e := w.dirty[i]
		e.queued = false
		if !e.alive {
			w.reclaim(e)
			continue
		}
		e.Refresh()
		w.reconcile(e)
	}
	clear(w.dirty)
	w.dirty = w.dirty[:0]

	for _, f := range w.families {
		f.removeDeadEntities()
	}
}

// reconcile applies the membership flips between the mask the families agree with
// and the entity's current mask.
func (w *World) reconcile(e *Entity) {
	old, current := e.reconciled, e.mask
	for _, f := range w.families {
		include := f.key.Include
		was := w.masks.Includes(old, include)
		is := w.masks.Includes(current, include)
		switch {
		case is && !was:
			f.addEntity(e)
		case was && !is:
			f.removeEntity(e.id)
		case is:
			f.refreshEntity(e)
		}
	}
	e.reconciled = current
}

// reclaim removes a dead entity from every family, the live list and the arena.
func (w *World) reclaim(e *Entity) {
	for _, f := range w.families {
		if w.masks.Includes(e.reconciled, f.key.Include) {
			f.removeEntity(e.id)
		}
	}

	if i := e.liveIndex; i >= 0 {
		last := len(w.live) - 1
		if i != last {
			w.live[i] = w.live[last]
			w.live[i].liveIndex = i
		}
		w.live[last] = nil
		w.live = w.live[:last]
	}

	for _, s := range e.slots {
		w.pool(s.typ).free(s.slot)
	}
	w.arena.release(e)
}

// getFamily returns the family for the signature, creating it and seeding it from
// the live entities on first request.
func (w *World) getFamily(include, write, optional Mask) *Family {
	key := FamilyKey{
		Include:  w.masks.Intern(include),
		Write:    w.masks.Intern(write),
		Optional: w.masks.Intern(optional),
	}
	if f, ok := w.familyIndex[key]; ok {
		return f
	}

	f := newFamily(len(w.families), key, include, optional)
	w.families = append(w.families, f)
	w.familyIndex[key] = f
	w.onAddFamily(f)

	w.logger.Debug("family created",
		zap.Int("family", f.id),
		zap.Strings("include", w.registry.Names(include)),
		zap.Strings("optional", w.registry.Names(optional)),
		zap.Int("count", f.Count()))
	return f
}

func (w *World) onAddFamily(f *Family) {
	for _, e := range w.live {
		if e.alive && w.masks.Includes(e.reconciled, f.key.Include) {
			f.addEntity(e)
		}
	}
}

// Families returns every family created so far, in creation order.
func (w *World) Families() []*Family {
	return slices.Clone(w.families)
}

// Step runs one frame of updates: queued commands, then spawn and reconcile before
// each FixedUpdate pass and the VariableUpdate pass, then a final spawn and
// reconcile so the frame ends consistent. External messages are purged last.
func (w *World) Step(dt float64) error {
	if w.closed {
		return ErrWorldClosed
	}

	w.step++
	w.stepping = true
	defer func() { w.stepping = false }()
	w.back.reset(w.step)
	w.back.DeltaTime = dt

	w.commands.flush(w, w.logCommandError)

	fixed := w.cfg.FixedTimestep
	w.accumulator += dt
	for steps := 0; w.accumulator >= fixed && steps < w.cfg.MaxFixedSteps; steps++ {
		w.SpawnPending()
		w.UpdateEntities()
		w.UpdateSystems(FixedUpdate, fixed)
		w.accumulator -= fixed
	}
	if w.accumulator >= fixed {
		dropped := math.Floor(w.accumulator / fixed)
		w.accumulator -= dropped * fixed
		w.logger.Debug("dropped fixed steps",
			zap.Uint64("step", w.step),
			zap.Int("dropped", int(dropped)))
	}
	w.purgeIdle(FixedUpdate)

	w.SpawnPending()
	w.UpdateEntities()
	w.UpdateSystems(VariableUpdate, dt)

	w.SpawnPending()
	w.UpdateEntities()

	w.purgeExternal()
	w.back.Alpha = w.accumulator / fixed
	return nil
}

// SwapFrames exchanges the front and back frame-data buffers.
func (w *World) SwapFrames() {
	w.front, w.back = w.back, w.front
}

// FrontData returns the frame data render systems read.
func (w *World) FrontData() *FrameData { return w.front }

func (w *World) logCommandError(err error) {
	w.logger.Warn("command failed", zap.Uint64("step", w.step), zap.Error(err))
}

// Post delivers an external message to an entity's inbox. External messages stay
// visible to every system for the rest of the current step.
func (w *World) Post(target EntityId, msg any) error {
	if err := w.deliver(target, ExternalSender, msg); err != nil {
		return err
	}
	w.externalTargets = append(w.externalTargets, target)
	return nil
}

// PostSystem delivers an external message to a system inbox.
func (w *World) PostSystem(name string, msg any) error {
	return w.deliverSystem(name, ExternalSender, msg)
}

func (w *World) deliver(target EntityId, sender SystemId, msg any) error {
	e := w.TryEntity(target)
	if e == nil {
		return eris.Wrapf(ErrEntityNotFound, "message target %s", target)
	}
	mt, ok := w.registry.MessageTypeOf(msg)
	if !ok {
		return eris.Wrapf(ErrUnknownMessage, "%T", msg)
	}
	w.messageSeq++
	e.inbox = append(e.inbox, Message{Type: mt, Sender: sender, Step: w.step, Payload: msg, seq: w.messageSeq})
	return nil
}

func (w *World) deliverSystem(name string, sender SystemId, msg any) error {
	entry, ok := w.scheduler.byName[name]
	if !ok {
		return eris.Wrapf(ErrSystemNotFound, "%q", name)
	}
	if entry.mailbox == nil {
		return eris.Wrapf(ErrInvalidSystem, "%s has no mailbox", name)
	}
	mt, ok := w.registry.MessageTypeOf(msg)
	if !ok {
		return eris.Wrapf(ErrUnknownMessage, "%T", msg)
	}
	w.messageSeq++
	entry.mailbox.inbox = append(entry.mailbox.inbox, Message{Type: mt, Sender: sender, Step: w.step, Payload: msg, seq: w.messageSeq})
	return nil
}

// purgeIdle purges the mailboxes of timeline systems that did not update this step.
func (w *World) purgeIdle(timeline Timeline) {
	for _, entry := range w.scheduler.timelines[timeline] {
		if entry.mailbox != nil {
			entry.mailbox.purgeOnce()
		}
	}
}

func (w *World) purgeExternal() {
	for _, id := range w.externalTargets {
		if e := w.arena.get(id); e != nil {
			e.dropMessagesFrom(ExternalSender)
		}
	}
	clear(w.externalTargets)
	w.externalTargets = w.externalTargets[:0]
}

// Close destroys every entity, replicas included, sweeps them and closes systems
// in reverse registration order. Later calls to Step and Render fail with
// ErrWorldClosed.
func (w *World) Close() error {
	if w.closed {
		return nil
	}
	w.closing = true

	w.commands.flush(w, w.logCommandError)
	for _, list := range [][]*Entity{slices.Clone(w.live), slices.Clone(w.pending)} {
		for _, e := range list {
			if e.alive && !e.parent.IsValid() {
				e.destroy()
			}
		}
	}
	w.SpawnPending()
	w.UpdateEntities()

	err := multierr.Combine(w.scheduler.closeSystems(w.logger)...)
	w.closed = true
	w.closing = false
	w.logger.Info("world closed",
		zap.Uint64("steps", w.step),
		zap.Int("families", len(w.families)),
		zap.Error(err))
	return err
}
