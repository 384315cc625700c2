package debugui

import (
	"github.com/plus3/famecs/ecs"
	"go.uber.org/multierr"
)

// Options configures InstallDebugUI.
type Options struct {
	// MaxEntities caps the entities captured per snapshot; zero means no limit.
	MaxEntities     int
	EntitiesPerPage int
	HistoryFrames   int
}

// DefaultOptions returns the window defaults.
func DefaultOptions() Options {
	return Options{MaxEntities: 10000, EntitiesPerPage: 100, HistoryFrames: 120}
}

// RegisterDebugUIComponents registers the components the debug UI binds to.
func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
}

// InstallDebugUI provides the Selection and ImguiInputState services and adds the
// snapshot, ImGui and inspector systems to w.
func InstallDebugUI(w *ecs.World, opts Options) error {
	ecs.ProvideService(w, NewSelection)
	ecs.ProvideService(w, func() *ImguiInputState { return &ImguiInputState{} })

	return multierr.Combine(
		w.AddSystem(&SnapshotSystem{MaxEntities: opts.MaxEntities}),
		w.AddSystem(&ImguiSystem{}),
		w.AddSystem(NewInspectorSystem(opts.EntitiesPerPage, opts.HistoryFrames)),
	)
}

// SpawnWindow creates an entity drawing render every frame.
func SpawnWindow(w *ecs.World, name string, render func(frame *ecs.RenderFrame)) (*ecs.Entity, error) {
	e := w.CreateEntity()
	e.SetName(name)
	if _, err := ecs.Add(e, ImguiItem{Render: render}); err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}
