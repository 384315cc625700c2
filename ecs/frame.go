package ecs

// UpdateFrame is passed to update systems.
type UpdateFrame struct {
	DeltaTime float64
	Step      uint64
	Timeline  Timeline
	World     *World
	// Data is the back frame-data buffer, owned by the update path.
	Data *FrameData
}

// Commands returns the world's deferred command queue.
func (f *UpdateFrame) Commands() *Commands {
	return f.World.commands
}

// RenderFrame is passed to render systems.
type RenderFrame struct {
	Painter Painter
	// Data is the front frame-data buffer holding the last committed update.
	Data  *FrameData
	Alpha float64
	World *World
	Step  uint64
	// Concurrent is set when rendering overlaps the next update. Render systems
	// must then read only Data.
	Concurrent bool
}
