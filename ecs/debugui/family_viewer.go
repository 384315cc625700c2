package debugui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
)

// FamilyViewer lists the world's families with their member counts.
type FamilyViewer struct {
	state    familyViewerState
	families []FamilyInfo
}

func NewFamilyViewer() FamilyViewer {
	return FamilyViewer{state: familyViewerState{sortColumn: 3}}
}

// Render draws the viewer and returns the family clicked this frame, if any.
func (fv *FamilyViewer) Render(snap *InspectorSnapshot) *int {
	if !imgui.BeginV("Family Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return nil
	}

	fv.families = append(fv.families[:0], snap.Families...)
	maxEntityCount := 0
	for _, f := range fv.families {
		maxEntityCount = max(maxEntityCount, f.EntityCount)
	}

	var clicked *int
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("FamilyTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Family")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Optional")
		imgui.TableSetupColumn("Entities")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			fv.state.sortColumn = int(spec.ColumnIndex())
			fv.state.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}
		SortFamilies(fv.families, fv.state.sortColumn, fv.state.sortAscending)

		for _, f := range fv.families {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := fv.state.selected != nil && *fv.state.selected == f.ID
			if imgui.SelectableBoolV(fmt.Sprintf("#%d", f.ID), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				id := f.ID
				fv.state.selected = &id
				clicked = &id
			}

			imgui.TableNextColumn()
			imgui.Text(strings.Join(f.Components, ", "))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(f.Optional, ", "))

			imgui.TableNextColumn()
			if f.PendingRemovals > 0 {
				imgui.Text(fmt.Sprintf("%d (-%d)", f.EntityCount, f.PendingRemovals))
			} else {
				imgui.Text(fmt.Sprintf("%d", f.EntityCount))
			}

			if maxEntityCount > 0 {
				barWidth := float32(f.EntityCount) / float32(maxEntityCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}
		}

		imgui.EndTable()
	}

	imgui.End()
	return clicked
}

// SortFamilies orders families in place by a viewer column.
func SortFamilies(families []FamilyInfo, column int, ascending bool) {
	slices.SortStableFunc(families, func(a, b FamilyInfo) int {
		var c int
		switch column {
		case 1:
			c = strings.Compare(strings.Join(a.Components, ","), strings.Join(b.Components, ","))
		case 2:
			c = strings.Compare(strings.Join(a.Optional, ","), strings.Join(b.Optional, ","))
		case 3:
			c = cmp.Compare(a.EntityCount, b.EntityCount)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if !ascending {
			c = -c
		}
		return c
	})
}
