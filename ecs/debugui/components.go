package debugui

import (
	"sync/atomic"

	"github.com/plus3/famecs/ecs"
)

// Selection is the entity picked in the browser, shared between the render-side
// windows and the update-side snapshot. It is a world service.
type Selection struct {
	entity atomic.Uint64
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	s := &Selection{}
	s.entity.Store(uint64(ecs.InvalidEntityId))
	return s
}

// Entity returns the selected entity, or ecs.InvalidEntityId.
func (s *Selection) Entity() ecs.EntityId {
	return ecs.EntityId(s.entity.Load())
}

// Select changes the selected entity.
func (s *Selection) Select(id ecs.EntityId) {
	s.entity.Store(uint64(id))
}

type entityBrowserState struct {
	filterText    string
	filterFamily  *int
	perPage       int
	currentPage   int
	sortColumn    int
	sortAscending bool
}

type familyViewerState struct {
	selected      *int
	sortColumn    int
	sortAscending bool
}

type performanceState struct {
	frameHistory []float32
	frameIndex   int
}

type maskDebuggerState struct {
	selected map[string]bool
}
