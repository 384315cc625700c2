package debugui

import (
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
)

// EntityInfo describes one spawned entity in an InspectorSnapshot.
type EntityInfo struct {
	ID         ecs.EntityId
	UUID       uuid.UUID
	Name       string
	Parent     ecs.EntityId
	Mask       ecs.Mask
	Components []string
	Enabled    bool
	Replicated bool
	Families   []int
}

// FamilyInfo describes one family in an InspectorSnapshot.
type FamilyInfo struct {
	ID              int
	Include         ecs.Mask
	Components      []string
	Optional        []string
	EntityCount     int
	PendingRemovals int
}

// ComponentView is a copy of one component of the selected entity.
type ComponentView struct {
	Type  ecs.ComponentType
	Name  string
	Value reflect.Value
}

// InspectorSnapshot is the frame-data view the inspector windows draw from.
type InspectorSnapshot struct {
	Step      uint64
	DeltaTime float64

	Entities  []EntityInfo
	Truncated int
	Families  []FamilyInfo

	// ComponentNames lists every registered component in ComponentType order.
	ComponentNames []string

	Selected           ecs.EntityId
	SelectedComponents []ComponentView

	World     ecs.WorldStats
	Scheduler *ecs.SchedulerStats
}

// Collect builds an InspectorSnapshot of w. At most maxEntities entities are
// listed; zero means no limit. Components of selected are copied so the snapshot
// stays valid while the world keeps running. Collect must run on the update
// goroutine.
func Collect(w *ecs.World, selected ecs.EntityId, maxEntities int) *InspectorSnapshot {
	registry := w.Registry()
	masks := w.Masks()

	snap := &InspectorSnapshot{
		Step:      w.StepCount(),
		Selected:  selected,
		World:     w.CollectStats(),
		Scheduler: w.SchedulerStats(),
	}

	snap.ComponentNames = make([]string, registry.Len())
	for i := range snap.ComponentNames {
		snap.ComponentNames[i] = registry.Name(ecs.ComponentType(i))
	}

	families := w.Families()
	snap.Families = make([]FamilyInfo, len(families))
	for i, f := range families {
		include := masks.Mask(f.Key().Include)
		snap.Families[i] = FamilyInfo{
			ID:              f.ID(),
			Include:         include,
			Components:      registry.Names(include),
			Optional:        registry.Names(masks.Mask(f.Key().Optional)),
			EntityCount:     f.Count(),
			PendingRemovals: f.PendingRemovals(),
		}
	}

	for e := range w.Entities() {
		if !e.IsAlive() {
			continue
		}
		if maxEntities > 0 && len(snap.Entities) >= maxEntities {
			snap.Truncated++
			continue
		}
		snap.Entities = append(snap.Entities, describeEntity(e, families))
	}

	if e := w.TryEntity(selected); e != nil && e.IsAlive() {
		types := e.ComponentTypes()
		slices.Sort(types)
		for _, ct := range types {
			snap.SelectedComponents = append(snap.SelectedComponents, ComponentView{
				Type:  ct,
				Name:  registry.Name(ct),
				Value: copyComponent(e.ComponentValue(ct)),
			})
		}
	}

	return snap
}

func describeEntity(e *ecs.Entity, families []*ecs.Family) EntityInfo {
	registry := e.World().Registry()

	var mask ecs.Mask
	for _, ct := range e.ComponentTypes() {
		mask = mask.With(ct)
	}
	info := EntityInfo{
		ID:         e.ID(),
		UUID:       e.UUID(),
		Name:       e.Name(),
		Parent:     ecs.InvalidEntityId,
		Mask:       mask,
		Components: registry.Names(mask),
		Enabled:    e.IsEnabled(),
		Replicated: e.IsReplicated(),
	}
	if p := e.Parent(); p != nil {
		info.Parent = p.ID()
	}
	for _, f := range families {
		if f.Contains(e.ID()) {
			info.Families = append(info.Families, f.ID())
		}
	}
	return info
}

func copyComponent(component any) reflect.Value {
	src := reflect.ValueOf(component).Elem()
	dst := reflect.New(src.Type()).Elem()
	dst.Set(src)
	return dst
}

// FilterEntities returns the entities whose id, name, uuid or component names
// contain text (case-insensitive). A non-nil family restricts the result to its
// members.
func FilterEntities(entities []EntityInfo, text string, family *int) []EntityInfo {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" && family == nil {
		return entities
	}

	var out []EntityInfo
	for _, info := range entities {
		if family != nil && !slices.Contains(info.Families, *family) {
			continue
		}
		if text != "" && !entityMatches(info, text) {
			continue
		}
		out = append(out, info)
	}
	return out
}

func entityMatches(info EntityInfo, text string) bool {
	if strings.Contains(info.ID.String(), text) ||
		strings.Contains(strings.ToLower(info.Name), text) ||
		strings.Contains(info.UUID.String(), text) {
		return true
	}
	for _, name := range info.Components {
		if strings.Contains(strings.ToLower(name), text) {
			return true
		}
	}
	return false
}

// Entity browser columns.
const (
	columnID = iota
	columnName
	columnComponents
	columnCount
)

// SortEntities orders entities in place by a browser column.
func SortEntities(entities []EntityInfo, column int, ascending bool) {
	slices.SortStableFunc(entities, func(a, b EntityInfo) int {
		var c int
		switch column {
		case columnName:
			c = strings.Compare(a.Name, b.Name)
		case columnComponents:
			c = strings.Compare(strings.Join(a.Components, ","), strings.Join(b.Components, ","))
		case columnCount:
			c = len(a.Components) - len(b.Components)
		}
		if c == 0 {
			c = compareIDs(a.ID, b.ID)
		}
		if !ascending {
			c = -c
		}
		return c
	})
}

func compareIDs(a, b ecs.EntityId) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MatchFamilies returns the families whose include set is covered by m, i.e. the
// families an entity with exactly the components in m would join.
func MatchFamilies(families []FamilyInfo, m ecs.Mask) []FamilyInfo {
	var out []FamilyInfo
	for _, f := range families {
		if m.Contains(f.Include) {
			out = append(out, f)
		}
	}
	return out
}

// MatchEntities returns the entities carrying every component in m.
func MatchEntities(entities []EntityInfo, m ecs.Mask) []EntityInfo {
	var out []EntityInfo
	for _, info := range entities {
		if info.Mask.Contains(m) {
			out = append(out, info)
		}
	}
	return out
}

// QueueFieldEdit queues an assignment of value to the field at path of the
// component ct on entity id. An empty path replaces the whole component. The
// edit is applied by the next Step; conversion errors are logged by the world.
func QueueFieldEdit(w *ecs.World, id ecs.EntityId, ct ecs.ComponentType, path []int, value any) {
	w.Commands().Exec(func(w *ecs.World) error {
		return SetField(w, id, ct, path, value)
	})
}

// SetField assigns value to the field at path of the component ct on entity id.
func SetField(w *ecs.World, id ecs.EntityId, ct ecs.ComponentType, path []int, value any) error {
	e, err := w.Entity(id)
	if err != nil {
		return err
	}
	component := e.ComponentValue(ct)
	if component == nil {
		return eris.Wrapf(ecs.ErrUnknownComponent, "%s has no %s", id, w.Registry().Name(ct))
	}

	field := reflect.ValueOf(component).Elem()
	for _, i := range path {
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				return eris.Errorf("nil pointer on path %v of %s", path, w.Registry().Name(ct))
			}
			field = field.Elem()
		}
		if field.Kind() != reflect.Struct || i >= field.NumField() {
			return eris.Errorf("invalid field path %v for %s", path, w.Registry().Name(ct))
		}
		field = field.Field(i)
	}
	if !field.CanSet() {
		return eris.Errorf("field path %v of %s is not settable", path, w.Registry().Name(ct))
	}

	v := reflect.ValueOf(value)
	if !v.IsValid() || !v.Type().ConvertibleTo(field.Type()) {
		return eris.Errorf("cannot assign %T to %s", value, field.Type())
	}
	field.Set(v.Convert(field.Type()))
	return nil
}

// SnapshotSystem publishes an InspectorSnapshot and the ImguiDrawList into the
// frame data every variable update.
type SnapshotSystem struct {
	Items     *ecs.FamilyBinding[imguiItemRow]
	Selection ecs.ServiceRef[*Selection]

	MaxEntities int
}

type imguiItemRow struct {
	*ImguiItem
}

func (*SnapshotSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *SnapshotSystem) Update(frame *ecs.UpdateFrame) error {
	selected := ecs.InvalidEntityId
	if sel, ok := s.Selection.TryGet(); ok {
		selected = sel.Entity()
	}
	snap := Collect(frame.World, selected, s.MaxEntities)
	snap.DeltaTime = frame.DeltaTime
	ecs.Publish(frame.Data, snap)

	list := ImguiDrawList{Items: make([]func(*ecs.RenderFrame), 0, s.Items.Len())}
	for row := range s.Items.Values() {
		if row.Render != nil {
			list.Items = append(list.Items, row.Render)
		}
	}
	ecs.Publish(frame.Data, list)
	return nil
}
