package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
)

// Message is an envelope in an entity or system inbox.
type Message struct {
	Type    MessageType
	Sender  SystemId // sending system, or ExternalSender
	Step    uint64
	Payload any

	seq uint64
}

type messageHandler struct {
	typ   MessageType
	fam   *Family
	rows  []int
	push  func(payload any)
	flush func(frame *UpdateFrame, rows []int) error
}

type systemHandler struct {
	typ    MessageType
	handle func(frame *UpdateFrame, payload any) error
}

// Mailbox gives a system messaging. Embed it in the system struct; World.AddSystem
// binds it.
//
// Messages a system sends stay in the target inboxes until the sender's first
// update of the next step, when they are purged just before it processes its own
// inbox. A FixedUpdate sender that gets no pass in a step is purged before the
// VariableUpdate pass instead. Each mailbox remembers the newest message it has
// processed, so every interested system sees a message once however many fixed
// passes a step runs. A system never receives its own messages.
type Mailbox struct {
	world *World
	id    SystemId

	handlers       []*messageHandler
	families       []*Family
	systemHandlers []systemHandler

	sent  []EntityId
	inbox []Message

	seen       uint64
	purgedStep uint64
}

func (mb *Mailbox) mailbox() *Mailbox { return mb }

func (mb *Mailbox) bind(w *World, id SystemId) {
	mb.world = w
	mb.id = id
}

// SystemID returns the id of the owning system, or 0 before registration.
func (mb *Mailbox) SystemID() SystemId { return mb.id }

// Send appends msg to the target's inbox stamped with this system's id.
func (mb *Mailbox) Send(target EntityId, msg any) error {
	if mb.world == nil {
		return eris.Wrap(ErrInvalidSystem, "mailbox is not bound to a world")
	}
	if err := mb.world.deliver(target, mb.id, msg); err != nil {
		return err
	}
	mb.sent = append(mb.sent, target)
	return nil
}

// SendSystem delivers msg to the inbox of the named system.
func (mb *Mailbox) SendSystem(name string, msg any) error {
	if mb.world == nil {
		return eris.Wrap(ErrInvalidSystem, "mailbox is not bound to a world")
	}
	return mb.world.deliverSystem(name, mb.id, msg)
}

// Pending returns the number of undelivered system-inbox messages.
func (mb *Mailbox) Pending() int { return len(mb.inbox) }

// OnMessage subscribes to messages of type M arriving at members of b's family. Once
// per update, before the system runs, fn is called with the record indices and the
// messages in inbox order. Call it from Init.
func OnMessage[M, T any](mb *Mailbox, b *FamilyBinding[T], fn func(frame *UpdateFrame, indices []int, msgs []M) error) {
	mt := mb.messageType(reflect.TypeFor[M]())
	fam := b.family()
	if fam == nil {
		panic(eris.Wrapf(ErrInvalidSystem, "binding %s is not bound", reflect.TypeFor[T]()))
	}

	var msgs []M
	h := &messageHandler{typ: mt, fam: fam}
	h.push = func(payload any) {
		msgs = append(msgs, payload.(M))
	}
	h.flush = func(frame *UpdateFrame, rows []int) error {
		err := fn(frame, rows, msgs)
		clear(msgs)
		msgs = msgs[:0]
		return err
	}
	mb.handlers = append(mb.handlers, h)
	for _, f := range mb.families {
		if f == fam {
			return
		}
	}
	mb.families = append(mb.families, fam)
}

// OnSystemMessage subscribes to messages of type M sent to the system itself.
// System-inbox messages are consumed on delivery.
func OnSystemMessage[M any](mb *Mailbox, fn func(frame *UpdateFrame, msg M) error) {
	mt := mb.messageType(reflect.TypeFor[M]())
	mb.systemHandlers = append(mb.systemHandlers, systemHandler{
		typ: mt,
		handle: func(frame *UpdateFrame, payload any) error {
			return fn(frame, payload.(M))
		},
	})
}

func (mb *Mailbox) messageType(t reflect.Type) MessageType {
	if mb.world == nil {
		panic(eris.Wrap(ErrInvalidSystem, "mailbox is not bound to a world"))
	}
	mt, ok := mb.world.registry.messageByType[t]
	if !ok {
		panic(eris.Wrapf(ErrUnknownMessage, "%s", t))
	}
	return mt
}

// purge drops everything this system sent since its last purge.
func (mb *Mailbox) purge() {
	for _, id := range mb.sent {
		if e := mb.world.arena.get(id); e != nil {
			e.dropMessagesFrom(mb.id)
		}
	}
	clear(mb.sent)
	mb.sent = mb.sent[:0]
}

// purgeOnce purges at most once per step. Outside Step every call purges.
func (mb *Mailbox) purgeOnce() {
	w := mb.world
	if w.stepping && mb.purgedStep == w.step {
		return
	}
	mb.purge()
	mb.purgedStep = w.step
}

// process delivers the inboxes of every subscribed family and then the system inbox.
func (mb *Mailbox) process(frame *UpdateFrame) error {
	var errs error
	seen, limit := mb.seen, mb.world.messageSeq
	mb.seen = limit

	for _, fam := range mb.families {
		for i := 0; i < fam.Count(); i++ {
			e := mb.world.arena.get(fam.EntityID(i))
			if e == nil || len(e.inbox) == 0 {
				continue
			}
			for _, msg := range e.inbox {
				if msg.seq <= seen || msg.seq > limit || msg.Sender == mb.id {
					continue
				}
				for _, h := range mb.handlers {
					if h.fam == fam && h.typ == msg.Type {
						h.rows = append(h.rows, i)
						h.push(msg.Payload)
					}
				}
			}
		}
	}

	for _, h := range mb.handlers {
		if len(h.rows) == 0 {
			continue
		}
		errs = multierr.Append(errs, h.flush(frame, h.rows))
		h.rows = h.rows[:0]
	}

	if len(mb.inbox) > 0 {
		inbox := mb.inbox
		mb.inbox = nil
		for _, msg := range inbox {
			for _, h := range mb.systemHandlers {
				if h.typ == msg.Type {
					errs = multierr.Append(errs, h.handle(frame, msg.Payload))
				}
			}
		}
	}

	return errs
}

func (e *Entity) dropMessagesFrom(sender SystemId) {
	kept := e.inbox[:0]
	for _, msg := range e.inbox {
		if msg.Sender != sender {
			kept = append(kept, msg)
		}
	}
	clear(e.inbox[len(kept):])
	e.inbox = kept
}
