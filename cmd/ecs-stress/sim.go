package main

import (
	"math/rand"

	"github.com/plus3/famecs/ecs"
)

type Position struct{ X, Y float64 }
type Velocity struct{ DX, DY float64 }
type Health struct{ Current, Max int }
type Lifetime struct{ Remaining float64 }
type Armor struct{ Value int }
type Team struct{ ID int }

// Hit is sent by the combat system to damage an entity.
type Hit struct{ Amount int }

// frameSummary is the snapshot the render system reads.
type frameSummary struct {
	Moving int
	Alive  int
}

func newRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Lifetime](registry)
	ecs.RegisterComponent[Armor](registry)
	ecs.RegisterComponent[Team](registry)
	ecs.RegisterMessage[Hit](registry)
	return registry
}

var optionalComponents = []func(r *rand.Rand) any{
	func(r *rand.Rand) any { return Velocity{DX: r.Float64()*2 - 1, DY: r.Float64()*2 - 1} },
	func(r *rand.Rand) any { return Health{Current: 100, Max: 100} },
	func(r *rand.Rand) any { return Lifetime{Remaining: 1 + r.Float64()*4} },
	func(r *rand.Rand) any { return Armor{Value: r.Intn(10)} },
	func(r *rand.Rand) any { return Team{ID: r.Intn(4)} },
}

// spawnRandom queues an entity with a Position and up to n random extra components.
func spawnRandom(cmds *ecs.Commands, r *rand.Rand, n int) {
	components := []any{Position{X: r.Float64() * 100, Y: r.Float64() * 100}}
	for _, i := range r.Perm(len(optionalComponents))[:min(n, len(optionalComponents))] {
		components = append(components, optionalComponents[i](r))
	}
	cmds.Spawn(components...)
}

type movementSystem struct {
	Movers *ecs.FamilyBinding[struct {
		*Position
		Velocity *Velocity `ecs:"read"`
	}]
}

func (*movementSystem) Timeline() ecs.Timeline { return ecs.FixedUpdate }

func (s *movementSystem) Update(frame *ecs.UpdateFrame) error {
	for m := range s.Movers.Values() {
		m.X += m.Velocity.DX * frame.DeltaTime
		m.Y += m.Velocity.DY * frame.DeltaTime
	}
	return nil
}

type lifetimeSystem struct {
	Mortal *ecs.FamilyBinding[struct {
		*Lifetime
		ID ecs.EntityId
	}]
	Expired int
}

func (*lifetimeSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *lifetimeSystem) Update(frame *ecs.UpdateFrame) error {
	for m := range s.Mortal.Values() {
		m.Remaining -= frame.DeltaTime
		if m.Remaining <= 0 {
			frame.Commands().Destroy(m.ID)
			s.Expired++
		}
	}
	return nil
}

// combatSystem sends hits to random armed entities; woundSystem applies them.
type combatSystem struct {
	ecs.Mailbox
	Targets *ecs.FamilyBinding[struct {
		*Health
		ID ecs.EntityId
	}]
	rand *rand.Rand
	rate float64
}

func (*combatSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *combatSystem) Update(frame *ecs.UpdateFrame) error {
	n := int(float64(s.Targets.Len()) * s.rate)
	for i := 0; i < n; i++ {
		target := s.Targets.ID(s.rand.Intn(s.Targets.Len()))
		if err := s.Send(target, Hit{Amount: 1 + s.rand.Intn(20)}); err != nil {
			return err
		}
	}
	return nil
}

type woundSystem struct {
	ecs.Mailbox
	Wounded *ecs.FamilyBinding[struct {
		*Health
		Armor *Armor `ecs:"optional,read"`
		ID    ecs.EntityId
	}]
	Killed int
}

func (*woundSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *woundSystem) Init(*ecs.World) error {
	ecs.OnMessage(&s.Mailbox, s.Wounded, func(frame *ecs.UpdateFrame, indices []int, hits []Hit) error {
		for i, idx := range indices {
			w := s.Wounded.At(idx)
			damage := hits[i].Amount
			if w.Armor != nil {
				damage = max(0, damage-w.Armor.Value)
			}
			w.Current -= damage
			if w.Current <= 0 && w.Current+damage > 0 {
				frame.Commands().Destroy(w.ID)
				s.Killed++
			}
		}
		return nil
	})
	return nil
}

func (*woundSystem) Update(*ecs.UpdateFrame) error { return nil }

// churnSystem adds and removes components and replaces destroyed entities so
// the population stays near its target.
type churnSystem struct {
	All *ecs.FamilyBinding[struct {
		*Position
		ID ecs.EntityId
	}]
	rand   *rand.Rand
	rate   float64
	target int

	Added, Removed, Spawned int
}

func (*churnSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *churnSystem) Update(frame *ecs.UpdateFrame) error {
	cmds := frame.Commands()
	registry := frame.World.Registry()
	n := int(float64(s.All.Len()) * s.rate)
	for i := 0; i < n; i++ {
		e := s.All.Entity(s.rand.Intn(s.All.Len()))
		component := optionalComponents[s.rand.Intn(len(optionalComponents))](s.rand)
		ct, _ := registry.TypeOf(component)
		if e.Has(ct) {
			cmds.RemoveComponent(e.ID(), ct)
			s.Removed++
		} else {
			cmds.AddComponent(e.ID(), component)
			s.Added++
		}
	}

	for missing := s.target - s.All.Len() - frame.World.PendingCount(); missing > 0; missing-- {
		spawnRandom(cmds, s.rand, s.rand.Intn(len(optionalComponents))+1)
		s.Spawned++
	}
	return nil
}

type summarySystem struct {
	Movers *ecs.FamilyBinding[struct {
		Velocity *Velocity `ecs:"read"`
	}]
}

func (*summarySystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *summarySystem) Update(frame *ecs.UpdateFrame) error {
	ecs.Publish(frame.Data, frameSummary{Moving: s.Movers.Len(), Alive: frame.World.EntityCount()})
	return nil
}

// renderSystem stands in for a painter; it reads only frame data.
type renderSystem struct {
	Frames  int
	Largest int
}

func (*renderSystem) Timeline() ecs.Timeline { return ecs.Render }

func (s *renderSystem) Render(frame *ecs.RenderFrame) error {
	summary, _ := ecs.Snapshot[frameSummary](frame.Data)
	s.Frames++
	s.Largest = max(s.Largest, summary.Alive)
	return nil
}

// simulation bundles the stress systems.
type simulation struct {
	lifetime *lifetimeSystem
	wounds   *woundSystem
	churn    *churnSystem
	render   *renderSystem
}

func newSimulation(w *ecs.World, seed int64, entities int, churn float64) (*simulation, error) {
	r := rand.New(rand.NewSource(seed))
	sim := &simulation{
		lifetime: &lifetimeSystem{},
		wounds:   &woundSystem{},
		churn:    &churnSystem{rand: r, rate: churn, target: entities},
		render:   &renderSystem{},
	}
	for _, sys := range []ecs.System{
		&movementSystem{},
		sim.lifetime,
		&combatSystem{rand: r, rate: churn},
		sim.wounds,
		sim.churn,
		&summarySystem{},
		sim.render,
	} {
		if err := w.AddSystem(sys); err != nil {
			return nil, err
		}
	}

	for i := 0; i < entities; i++ {
		spawnRandom(w.Commands(), r, r.Intn(len(optionalComponents))+1)
	}
	return sim, nil
}
