// Package debugui provides immediate-mode GUI integration for ECS applications using Dear ImGui.
//
// Update-side systems publish snapshots into the frame data; Render-side systems
// draw from those snapshots only, so the windows stay valid when rendering
// overlaps the next update. Edits made in the windows are queued as world
// commands.
package debugui

import (
	"sync/atomic"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame. The
// function runs on the render goroutine and must only read frame data when
// frame.Concurrent is set.
type ImguiItem struct {
	Render func(frame *ecs.RenderFrame)
}

// ImguiDrawList is the frame-data snapshot of every ImguiItem render function.
type ImguiDrawList struct {
	Items []func(frame *ecs.RenderFrame)
}

// ImguiInputState tracks Dear ImGui's input capture state. It is a world service:
// the render goroutine writes it and update systems read it.
type ImguiInputState struct {
	wantCaptureMouse    atomic.Bool
	wantCaptureKeyboard atomic.Bool
}

// WantCaptureMouse reports whether ImGui consumed the mouse last frame.
func (s *ImguiInputState) WantCaptureMouse() bool { return s.wantCaptureMouse.Load() }

// WantCaptureKeyboard reports whether ImGui consumed the keyboard last frame.
func (s *ImguiInputState) WantCaptureKeyboard() bool { return s.wantCaptureKeyboard.Load() }

func (s *ImguiInputState) set(mouse, keyboard bool) {
	s.wantCaptureMouse.Store(mouse)
	s.wantCaptureKeyboard.Store(keyboard)
}

// ImguiSystem updates the ImguiInputState service and runs the published
// ImguiItem render functions.
type ImguiSystem struct {
	InputState ecs.ServiceRef[*ImguiInputState]
}

func (*ImguiSystem) Timeline() ecs.Timeline { return ecs.Render }

func (i *ImguiSystem) Render(frame *ecs.RenderFrame) error {
	if state, ok := i.InputState.TryGet(); ok {
		io := imgui.CurrentIO()
		state.set(io.WantCaptureMouse(), io.WantCaptureKeyboard())
	}

	list, _ := ecs.Snapshot[ImguiDrawList](frame.Data)
	for _, render := range list.Items {
		render(frame)
	}
	return nil
}
