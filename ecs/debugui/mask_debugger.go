package debugui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

// MaskDebugger builds a component mask from checkboxes and shows which families
// and entities it matches.
type MaskDebugger struct {
	state maskDebuggerState
}

func NewMaskDebugger() MaskDebugger {
	return MaskDebugger{state: maskDebuggerState{selected: make(map[string]bool)}}
}

// Mask returns the mask of the checked components.
func (md *MaskDebugger) Mask(names []string) ecs.Mask {
	var m ecs.Mask
	for ct, name := range names {
		if md.state.selected[name] {
			m = m.With(ecs.ComponentType(ct))
		}
	}
	return m
}

// Toggle checks or unchecks a component by name.
func (md *MaskDebugger) Toggle(name string, on bool) {
	if on {
		md.state.selected[name] = true
	} else {
		delete(md.state.selected, name)
	}
}

func (md *MaskDebugger) Render(snap *InspectorSnapshot, masks *ecs.MaskStorage) {
	if !imgui.BeginV("Mask Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.Text("Select Component Types:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		clear(md.state.selected)
	}

	for _, name := range snap.ComponentNames {
		selected := md.state.selected[name]
		if imgui.Checkbox(name, &selected) {
			md.Toggle(name, selected)
		}
	}

	imgui.Separator()

	mask := md.Mask(snap.ComponentNames)
	if mask.IsEmpty() {
		imgui.Text("No component types selected")
		imgui.End()
		return
	}

	families := MatchFamilies(snap.Families, mask)
	entities := MatchEntities(snap.Entities, mask)

	imgui.Text(fmt.Sprintf("Mask: %s (handle %d)", mask, masks.Intern(mask)))
	imgui.Text(fmt.Sprintf("Matching Families: %d", len(families)))
	imgui.Text(fmt.Sprintf("Matching Entities: %d", len(entities)))

	if imgui.TreeNodeStr("Family Details") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("MaskFamilyTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Family")
			imgui.TableSetupColumn("Components")
			imgui.TableSetupColumn("Entities")
			imgui.TableHeadersRow()

			for _, f := range families {
				imgui.TableNextRow()

				imgui.TableSetColumnIndex(0)
				imgui.Text(fmt.Sprintf("#%d", f.ID))

				imgui.TableSetColumnIndex(1)
				imgui.Text(strings.Join(f.Components, ", "))

				imgui.TableSetColumnIndex(2)
				imgui.Text(fmt.Sprintf("%d", f.EntityCount))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	imgui.End()
}
