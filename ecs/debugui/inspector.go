package debugui

import (
	"github.com/plus3/famecs/ecs"
)

// InspectorSystem draws the debug windows from the published InspectorSnapshot.
// It never reads live world state, so it is safe with overlapped rendering.
type InspectorSystem struct {
	Selection ecs.ServiceRef[*Selection]

	Browser   EntityBrowser
	Inspector ComponentInspector
	Families  FamilyViewer
	Masks     MaskDebugger
	Perf      PerformanceStats
}

// NewInspectorSystem creates the windows with the given page size and frame history.
func NewInspectorSystem(entitiesPerPage, historyFrames int) *InspectorSystem {
	return &InspectorSystem{
		Browser:   NewEntityBrowser(entitiesPerPage),
		Inspector: NewComponentInspector(),
		Families:  NewFamilyViewer(),
		Masks:     NewMaskDebugger(),
		Perf:      NewPerformanceStats(historyFrames),
	}
}

func (*InspectorSystem) Timeline() ecs.Timeline { return ecs.Render }

func (s *InspectorSystem) Render(frame *ecs.RenderFrame) error {
	snap, ok := ecs.Snapshot[*InspectorSnapshot](frame.Data)
	if !ok {
		return nil
	}
	selection, ok := s.Selection.TryGet()
	if !ok {
		return nil
	}

	s.Perf.Render(snap)
	if family := s.Families.Render(snap); family != nil {
		s.Browser.FilterFamily(*family)
	}
	s.Browser.Render(snap, selection)
	s.Inspector.Render(snap, frame.World)
	s.Masks.Render(snap, frame.World.Masks())
	return nil
}
