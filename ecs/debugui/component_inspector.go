package debugui

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

// ComponentInspector shows the components of the selected entity and queues
// edits of their scalar fields.
type ComponentInspector struct{}

func NewComponentInspector() ComponentInspector {
	return ComponentInspector{}
}

func (ci *ComponentInspector) Render(snap *InspectorSnapshot, w *ecs.World) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if !snap.Selected.IsValid() {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}
	idx := slices.IndexFunc(snap.Entities, func(info EntityInfo) bool { return info.ID == snap.Selected })
	if idx < 0 {
		imgui.Text(fmt.Sprintf("Entity %s not found", snap.Selected))
		imgui.End()
		return
	}
	info := snap.Entities[idx]

	imgui.Text(fmt.Sprintf("Entity: %s", info.ID))
	imgui.Text(fmt.Sprintf("UUID: %s", info.UUID))
	if info.Name != "" {
		imgui.Text(fmt.Sprintf("Name: %s", info.Name))
	}
	if info.Parent.IsValid() {
		imgui.Text(fmt.Sprintf("Parent: %s", info.Parent))
	}
	imgui.Text(fmt.Sprintf("Enabled: %t  Replica: %t", info.Enabled, info.Replicated))
	imgui.Separator()

	for _, view := range snap.SelectedComponents {
		if imgui.TreeNodeStr(view.Name) {
			edit := func(path []int, value any) {
				QueueFieldEdit(w, info.ID, view.Type, path, value)
			}
			ci.renderValue(view.Name, view.Value, nil, edit)
			imgui.TreePop()
		}
	}

	imgui.End()
}

func (ci *ComponentInspector) renderValue(name string, val reflect.Value, path []int, edit func([]int, any)) {
	if val.Kind() != reflect.Struct {
		ci.renderField(name, val, path, edit)
		return
	}
	for _, field := range inspectorLayouts.Fields(val.Type()) {
		fieldVal := val.Field(field.Index)
		fieldPath := append(slices.Clip(path), field.Index)
		switch field.Kind {
		case FieldPointer:
			if fieldVal.IsNil() {
				imgui.Text(fmt.Sprintf("%s: nil", field.Name))
			} else {
				imgui.Text(fmt.Sprintf("%s: %v", field.Name, fieldVal.Elem().Interface()))
			}
		case FieldStruct:
			if imgui.TreeNodeStr(field.Name) {
				ci.renderValue(field.Name, fieldVal, fieldPath, edit)
				imgui.TreePop()
			}
		default:
			ci.renderField(field.Name, fieldVal, fieldPath, edit)
		}
		if field.Purpose != ecs.PurposeAll && field.Kind != FieldStruct {
			imgui.SameLine()
			imgui.TextColored(imgui.NewVec4(0.6, 0.6, 0.6, 1.0), "["+field.Purpose.String()+"]")
		}
	}
}

func (ci *ComponentInspector) renderField(name string, val reflect.Value, path []int, edit func([]int, any)) {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}
	id := fmt.Sprintf("##%s%v", name, path)

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(id, &v) {
			edit(path, int64(v))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(id, &v) && v >= 0 {
			edit(path, uint64(v))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(id, &v) {
			edit(path, float64(v))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name+id, &v) {
			edit(path, v)
		}

	case reflect.String:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(id, "", &v, imgui.InputTextFlagsNone, nil) {
			edit(path, v)
		}

	case reflect.Slice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
	}
}
