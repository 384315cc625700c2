package main

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/plus3/famecs/ecs"
)

type creatureRow struct {
	*Position
	*Velocity
	*Creature
	ID ecs.EntityId
}

type bushRow struct {
	*Bush
	Position *Position `ecs:"read"`
	ID       ecs.EntityId
}

// WanderSystem steers creatures toward the nearest stocked bush when hungry and
// wanders otherwise.
type WanderSystem struct {
	Creatures *ecs.FamilyBinding[creatureRow]
	Bushes    *ecs.FamilyBinding[bushRow]
	Config    ecs.ServiceRef[*SimConfig]

	rand *rand.Rand
}

func (*WanderSystem) Timeline() ecs.Timeline { return ecs.FixedUpdate }

func (s *WanderSystem) Update(frame *ecs.UpdateFrame) error {
	cfg := s.Config.Get()
	dt := float32(frame.DeltaTime)

	for c := range s.Creatures.Values() {
		if c.Hunger > c.MaxHunger/2 {
			if bush, ok := s.nearestBush(c.Position); ok {
				dx, dy := bush.Position.X-c.X, bush.Position.Y-c.Y
				dist := float32(math.Hypot(float64(dx), float64(dy)))
				if dist > 0 {
					c.DX, c.DY = dx/dist*c.Speed, dy/dist*c.Speed
				}
			}
		} else if s.rand.Float32() < dt {
			angle := s.rand.Float64() * 2 * math.Pi
			c.DX = float32(math.Cos(angle)) * c.Speed / 2
			c.DY = float32(math.Sin(angle)) * c.Speed / 2
		}

		c.X = clamp(c.X+c.DX*dt, 0, cfg.Width)
		c.Y = clamp(c.Y+c.DY*dt, 0, cfg.Height)
	}
	return nil
}

func (s *WanderSystem) nearestBush(p *Position) (bushRow, bool) {
	var (
		best     bushRow
		bestDist = float32(math.MaxFloat32)
		found    bool
	)
	for b := range s.Bushes.Values() {
		if b.Amount == 0 {
			continue
		}
		dx, dy := b.Position.X-p.X, b.Position.Y-p.Y
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist, found = b, d, true
		}
	}
	return best, found
}

// ForageSystem sends a Bite to any stocked bush within reach of a hungry creature.
type ForageSystem struct {
	ecs.Mailbox
	Creatures *ecs.FamilyBinding[creatureRow]
	Bushes    *ecs.FamilyBinding[bushRow]
	Config    ecs.ServiceRef[*SimConfig]
}

func (*ForageSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *ForageSystem) Update(*ecs.UpdateFrame) error {
	reach := s.Config.Get().BiteRange
	for c := range s.Creatures.Values() {
		if c.Hunger < c.MaxHunger/4 {
			continue
		}
		for b := range s.Bushes.Values() {
			dx, dy := b.Position.X-c.X, b.Position.Y-c.Y
			if b.Amount > 0 && dx*dx+dy*dy <= reach*reach {
				if err := s.Send(b.ID, Bite{Eater: c.ID}); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

// BushSystem serves bites and regrows bushes.
type BushSystem struct {
	ecs.Mailbox
	Bushes *ecs.FamilyBinding[bushRow]
}

func (*BushSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *BushSystem) Init(*ecs.World) error {
	ecs.OnMessage(&s.Mailbox, s.Bushes, func(frame *ecs.UpdateFrame, indices []int, bites []Bite) error {
		for i, idx := range indices {
			bush := s.Bushes.At(idx)
			if bush.Amount == 0 {
				continue
			}
			bush.Amount--
			if err := s.Send(bites[i].Eater, Fed{Amount: 10}); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}

func (s *BushSystem) Update(frame *ecs.UpdateFrame) error {
	for b := range s.Bushes.Values() {
		if b.Amount >= b.MaxAmount {
			continue
		}
		b.growth += b.Regrowth * float32(frame.DeltaTime)
		for b.growth >= 1 && b.Amount < b.MaxAmount {
			b.Amount++
			b.growth--
		}
	}
	return nil
}

// LifeSystem feeds, ages, breeds and kills creatures.
type LifeSystem struct {
	ecs.Mailbox
	Creatures *ecs.FamilyBinding[creatureRow]
	Config    ecs.ServiceRef[*SimConfig]

	rand   *rand.Rand
	Births int
	Deaths int
}

func (*LifeSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *LifeSystem) Init(*ecs.World) error {
	ecs.OnMessage(&s.Mailbox, s.Creatures, func(frame *ecs.UpdateFrame, indices []int, meals []Fed) error {
		for i, idx := range indices {
			c := s.Creatures.At(idx)
			c.Hunger = max(0, c.Hunger-float32(meals[i].Amount))
		}
		return nil
	})
	return nil
}

func (s *LifeSystem) Update(frame *ecs.UpdateFrame) error {
	cfg := s.Config.Get()
	dt := float32(frame.DeltaTime)
	cmds := frame.Commands()
	population := s.Creatures.Len()

	for c := range s.Creatures.Values() {
		c.Age += dt
		c.Hunger += cfg.HungerRate * dt

		if c.Hunger >= c.MaxHunger || c.Age >= c.Lifespan {
			cmds.Destroy(c.ID)
			s.Deaths++
			continue
		}

		if c.Hunger < c.MaxHunger*cfg.BreedThreshold && population < cfg.MaxCreatures && s.rand.Float32() < dt/10 {
			c.Hunger += c.MaxHunger / 4
			c.Births++
			s.Births++
			population++
			child := *c.Creature
			child.Age, child.Births, child.Hunger = 0, 0, c.MaxHunger/2
			child.Speed = max(1, child.Speed+s.rand.Float32()-0.5)
			cmds.Spawn(
				Position{X: c.X, Y: c.Y},
				Velocity{},
				Sprite{Color: [3]uint8{255, 179, 186}, Scale: 0.8},
				child,
			)
		}
	}
	return nil
}

// CensusSystem publishes a Census for render-side windows.
type CensusSystem struct {
	Creatures *ecs.FamilyBinding[creatureRow]
	Bushes    *ecs.FamilyBinding[bushRow]
	Config    ecs.ServiceRef[*SimConfig]
	Life      *LifeSystem

	elapsed float64
}

func (*CensusSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *CensusSystem) Update(frame *ecs.UpdateFrame) error {
	s.elapsed += frame.DeltaTime
	census := Census{
		Day:       int(s.elapsed / float64(s.Config.Get().DayLength)),
		Creatures: s.Creatures.Len(),
		Bushes:    s.Bushes.Len(),
		Births:    s.Life.Births,
		Deaths:    s.Life.Deaths,
	}
	for b := range s.Bushes.Values() {
		census.Food += b.Amount
	}
	ecs.Publish(frame.Data, census)
	return nil
}

// populate spawns the starting creatures and bushes from prefabs.
func populate(ctx context.Context, w *ecs.World, r *rand.Rand, creatures, bushes int) error {
	cfg, err := ecs.Service[*SimConfig](w)
	if err != nil {
		return err
	}
	place := func(prefab string, n int) error {
		for i := 0; i < n; i++ {
			e, err := w.SpawnPrefab(ctx, prefab)
			if err != nil {
				return err
			}
			pos := ecs.Get[Position](e)
			pos.X, pos.Y = r.Float32()*cfg.Width, r.Float32()*cfg.Height
		}
		return nil
	}
	if err := place("bush", bushes); err != nil {
		return err
	}
	return place("creature", creatures)
}

func addSimulationSystems(w *ecs.World, r *rand.Rand) (*LifeSystem, error) {
	life := &LifeSystem{rand: r}
	for _, sys := range []ecs.System{
		&WanderSystem{rand: r},
		&ForageSystem{},
		&BushSystem{},
		life,
		&CensusSystem{Life: life},
	} {
		if err := w.AddSystem(sys); err != nil {
			return nil, err
		}
	}
	return life, nil
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
