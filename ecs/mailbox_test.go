package ecs_test

import (
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type damageable struct {
	*Health
	ID ecs.EntityId
}

type attacker struct {
	ecs.Mailbox
	target ecs.EntityId
	rotate []ecs.EntityId
	fixed  bool
	hits   int
	notify string
}

func (a *attacker) Timeline() ecs.Timeline {
	if a.fixed {
		return ecs.FixedUpdate
	}
	return ecs.VariableUpdate
}

func (a *attacker) Update(*ecs.UpdateFrame) error {
	target := a.target
	if len(a.rotate) > 0 {
		target = a.rotate[a.hits%len(a.rotate)]
	}
	a.hits++
	if err := a.Send(target, Damage{Amount: a.hits}); err != nil {
		return err
	}
	if a.notify != "" {
		return a.SendSystem(a.notify, Ping{})
	}
	return nil
}

type victim struct {
	ecs.Mailbox
	Targets *ecs.FamilyBinding[damageable]

	name   string
	fixed  bool
	damage []int
	heals  []int
	pings  int
}

func (v *victim) Timeline() ecs.Timeline {
	if v.fixed {
		return ecs.FixedUpdate
	}
	return ecs.VariableUpdate
}

func (v *victim) SystemName() string            { return v.name }
func (v *victim) Update(*ecs.UpdateFrame) error { return nil }

func (v *victim) Init(*ecs.World) error {
	ecs.OnMessage(&v.Mailbox, v.Targets, func(_ *ecs.UpdateFrame, indices []int, msgs []Damage) error {
		for k, i := range indices {
			v.Targets.At(i).Health.Current -= msgs[k].Amount
			v.damage = append(v.damage, msgs[k].Amount)
		}
		return nil
	})
	ecs.OnMessage(&v.Mailbox, v.Targets, func(_ *ecs.UpdateFrame, _ []int, msgs []Heal) error {
		for _, m := range msgs {
			v.heals = append(v.heals, m.Amount)
		}
		return nil
	})
	ecs.OnSystemMessage(&v.Mailbox, func(*ecs.UpdateFrame, Ping) error {
		v.pings++
		return nil
	})
	return nil
}

func TestMessagesSeenOncePerSystem(t *testing.T) {
	w := newTestWorld()
	target := spawn(t, w, Health{Current: 100, Max: 100})

	early := &victim{name: "early"}
	a := &attacker{target: target.ID()}
	late := &victim{name: "late"}
	require.NoError(t, w.AddSystem(early))
	require.NoError(t, w.AddSystem(a))
	require.NoError(t, w.AddSystem(late))

	for i := 0; i < 4; i++ {
		require.NoError(t, w.Step(0))
	}

	assert.Equal(t, []int{1, 2, 3, 4}, late.damage, "later systems see messages the same frame")
	assert.Equal(t, []int{1, 2, 3}, early.damage, "earlier systems see them the next frame")
	assert.Equal(t, 100-10-6, ecs.Get[Health](target).Current)

	inbox := target.Inbox()
	require.Len(t, inbox, 1, "the sender purges what it sent last frame")
	assert.Equal(t, a.SystemID(), inbox[0].Sender)
	assert.Equal(t, Damage{Amount: 4}, inbox[0].Payload)
	assert.Equal(t, uint64(4), inbox[0].Step)
}

func TestMessagePurgeAcrossSteps(t *testing.T) {
	const tick = 0.25

	type expect struct {
		name  string
		fixed bool
		want  []int
	}
	tests := []struct {
		name     string
		fixed    bool
		targets  int
		steps    []float64
		before   []expect
		after    []expect
		leftover []int
	}{
		{
			name:     "changing targets",
			targets:  2,
			steps:    []float64{0, 0, 0, 0, 0},
			before:   []expect{{name: "early", want: []int{1, 2, 3, 4}}},
			after:    []expect{{name: "late", want: []int{1, 2, 3, 4, 5}}},
			leftover: []int{5},
		},
		{
			name:     "zero fixed passes",
			fixed:    true,
			targets:  1,
			steps:    []float64{tick, 0, 0},
			after:    []expect{{name: "late", want: []int{1}}},
			leftover: nil,
		},
		{
			name:    "multiple fixed passes",
			fixed:   true,
			targets: 1,
			steps:   []float64{2 * tick, tick},
			before:  []expect{{name: "fixedEarly", fixed: true, want: []int{1, 2}}},
			after: []expect{
				{name: "fixedLate", fixed: true, want: []int{1, 2, 3}},
				{name: "late", want: []int{1, 2, 3}},
			},
			leftover: []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ecs.DefaultConfig()
			cfg.FixedTimestep = tick
			w := newTestWorld(ecs.WithConfig(cfg))

			a := &attacker{fixed: tt.fixed}
			var targets []*ecs.Entity
			for i := 0; i < tt.targets; i++ {
				e := spawn(t, w, Health{Current: 100})
				targets = append(targets, e)
				a.rotate = append(a.rotate, e.ID())
			}

			victims := map[string]*victim{}
			add := func(list []expect) {
				for _, e := range list {
					v := &victim{name: e.name, fixed: e.fixed}
					victims[e.name] = v
					require.NoError(t, w.AddSystem(v))
				}
			}
			add(tt.before)
			require.NoError(t, w.AddSystem(a))
			add(tt.after)

			for _, dt := range tt.steps {
				require.NoError(t, w.Step(dt))
			}

			for _, e := range append(tt.before, tt.after...) {
				assert.Equal(t, e.want, victims[e.name].damage, e.name)
			}

			var leftover []int
			for _, e := range targets {
				for _, msg := range e.Inbox() {
					assert.Equal(t, a.SystemID(), msg.Sender)
					leftover = append(leftover, msg.Payload.(Damage).Amount)
				}
			}
			assert.Equal(t, tt.leftover, leftover, "only the last step's messages remain")
		})
	}
}

func TestSenderIgnoresOwnMessages(t *testing.T) {
	cfg := ecs.DefaultConfig()
	cfg.FixedTimestep = 0.25
	w := newTestWorld(ecs.WithConfig(cfg))
	target := spawn(t, w, Health{Current: 100})

	s := &selfAware{}
	s.target = target.ID()
	s.fixed = true
	require.NoError(t, w.AddSystem(s))

	require.NoError(t, w.Step(0.5))
	assert.Equal(t, 2, s.hits)
	assert.Empty(t, s.received, "the second pass does not see the first pass's message")
	assert.Len(t, target.Inbox(), 2)
}

type selfAware struct {
	attacker
	Targets  *ecs.FamilyBinding[damageable]
	received []int
}

func (s *selfAware) Init(*ecs.World) error {
	ecs.OnMessage(&s.Mailbox, s.Targets, func(_ *ecs.UpdateFrame, _ []int, msgs []Damage) error {
		for _, m := range msgs {
			s.received = append(s.received, m.Amount)
		}
		return nil
	})
	return nil
}

func TestExternalMessagesLastOneStep(t *testing.T) {
	w := newTestWorld()
	target := spawn(t, w, Health{Current: 1})
	first := &victim{name: "first"}
	second := &victim{name: "second"}
	require.NoError(t, w.AddSystem(first))
	require.NoError(t, w.AddSystem(second))

	require.NoError(t, w.Post(target.ID(), Heal{Amount: 5}))
	w.Commands().Post(target.ID(), Heal{Amount: 7})
	require.NoError(t, w.Step(0))

	assert.Equal(t, []int{5, 7}, first.heals)
	assert.Equal(t, []int{5, 7}, second.heals)
	assert.Empty(t, target.Inbox())

	require.NoError(t, w.Step(0))
	assert.Len(t, first.heals, 2, "external messages are purged at the end of the step")
}

func TestSystemInbox(t *testing.T) {
	w := newTestWorld()
	target := spawn(t, w, Health{})
	v := &victim{name: "listener"}
	a := &attacker{target: target.ID(), notify: "listener"}
	require.NoError(t, w.AddSystem(v))
	require.NoError(t, w.AddSystem(a))

	require.NoError(t, w.Step(0))
	assert.Equal(t, 0, v.pings)
	assert.Equal(t, 1, v.Pending())

	require.NoError(t, w.PostSystem("listener", Ping{}))
	require.NoError(t, w.Step(0))
	assert.Equal(t, 2, v.pings, "delivery consumes the inbox")
	assert.Equal(t, 1, v.Pending())

	assert.ErrorIs(t, w.PostSystem("nobody", Ping{}), ecs.ErrSystemNotFound)

	var log []string
	require.NoError(t, w.AddSystem(&recordingSystem{name: "plain", timeline: ecs.FixedUpdate, log: &log}))
	assert.ErrorIs(t, w.PostSystem("plain", Ping{}), ecs.ErrInvalidSystem, "no mailbox")
}

func TestMessagesOutsideFamilyAreIgnored(t *testing.T) {
	w := newTestWorld()
	bystander := spawn(t, w, Position{})
	v := &victim{name: "v"}
	require.NoError(t, w.AddSystem(v))

	require.NoError(t, w.Post(bystander.ID(), Damage{Amount: 3}))
	require.NoError(t, w.Step(0))
	assert.Empty(t, v.damage)
}

func TestSendErrors(t *testing.T) {
	w := newTestWorld()
	target := spawn(t, w, Health{})

	var unbound ecs.Mailbox
	assert.ErrorIs(t, unbound.Send(target.ID(), Ping{}), ecs.ErrInvalidSystem)
	assert.ErrorIs(t, unbound.SendSystem("x", Ping{}), ecs.ErrInvalidSystem)

	assert.ErrorIs(t, w.Post(ecs.NewEntityId(99, 1), Ping{}), ecs.ErrEntityNotFound)
	assert.ErrorIs(t, w.Post(target.ID(), Position{}), ecs.ErrUnknownMessage)
	assert.ErrorIs(t, w.Post(target.ID(), &Ping{}), ecs.ErrUnknownMessage, "message types match exactly")

	v := &victim{name: "v"}
	require.NoError(t, w.AddSystem(v))
	assert.Panics(t, func() {
		ecs.OnSystemMessage(&v.Mailbox, func(*ecs.UpdateFrame, Position) error { return nil })
	})
}

func TestInboxClearedOnReuse(t *testing.T) {
	w := newTestWorld(ecs.WithConfig(smallArenaConfig(1)))
	first := spawn(t, w, Health{})
	firstID := first.ID()
	require.NoError(t, w.Post(firstID, Ping{}))
	require.NoError(t, first.Destroy())
	w.UpdateEntities()

	second := spawn(t, w, Health{})
	assert.Equal(t, firstID.Index(), second.ID().Index())
	assert.NotEqual(t, firstID, second.ID())
	assert.Empty(t, second.Inbox())
}
