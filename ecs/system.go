package ecs

// Timeline is a scheduling lane. Systems on a timeline run in registration order.
type Timeline uint8

const (
	// FixedUpdate systems run zero or more times per step at Config.FixedTimestep.
	FixedUpdate Timeline = iota
	// VariableUpdate systems run once per step with the real frame delta.
	VariableUpdate
	// Render systems run once per rendered frame and receive the Painter.
	Render

	timelineCount
)

func (t Timeline) String() string {
	switch t {
	case FixedUpdate:
		return "fixed"
	case VariableUpdate:
		return "variable"
	case Render:
		return "render"
	}
	return "unknown"
}

// SystemId identifies a registered system. Ids start at 1; 0 is ExternalSender.
type SystemId uint32

// ExternalSender stamps messages injected from outside the system flow.
const ExternalSender SystemId = 0

// Painter is the opaque render sink handed to render systems.
type Painter any

// System represents a behavior that operates on entities with specific components.
// User-defined systems implement System plus Updater (update timelines) or Renderer
// (the Render timeline). They can include FamilyBinding and ServiceRef fields, an
// embedded Mailbox, and custom state fields that persist between frames.
type System interface {
	Timeline() Timeline
}

// Updater is implemented by FixedUpdate and VariableUpdate systems.
type Updater interface {
	Update(frame *UpdateFrame) error
}

// Renderer is implemented by Render systems.
type Renderer interface {
	Render(frame *RenderFrame) error
}

// Initializer is called once after the system's fields are bound.
type Initializer interface {
	Init(w *World) error
}

// Closer is called when the world closes, in reverse registration order.
type Closer interface {
	Close() error
}

// Namer overrides the system name, which defaults to the struct type name.
type Namer interface {
	SystemName() string
}
