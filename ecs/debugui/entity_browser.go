package debugui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
)

// EntityBrowser lists the snapshot's entities with filtering, sorting and paging.
// Clicking a row changes the Selection.
type EntityBrowser struct {
	state  entityBrowserState
	sorted []EntityInfo
}

// NewEntityBrowser creates a browser showing perPage entities per page.
func NewEntityBrowser(perPage int) EntityBrowser {
	if perPage <= 0 {
		perPage = 100
	}
	return EntityBrowser{state: entityBrowserState{perPage: perPage, sortAscending: true}}
}

func (eb *EntityBrowser) Render(snap *InspectorSnapshot, selection *Selection) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.InputTextWithHint("##search", "Search...", &eb.state.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.state.filterText = ""
		eb.state.filterFamily = nil
		eb.state.currentPage = 0
	}
	if eb.state.filterFamily != nil {
		imgui.Text(fmt.Sprintf("Family #%d only", *eb.state.filterFamily))
	}

	eb.sorted = append(eb.sorted[:0], FilterEntities(snap.Entities, eb.state.filterText, eb.state.filterFamily)...)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("Name")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.state.sortColumn = int(spec.ColumnIndex())
			eb.state.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}
		SortEntities(eb.sorted, eb.state.sortColumn, eb.state.sortAscending)

		start, end := pageBounds(len(eb.sorted), eb.state.currentPage, eb.state.perPage)
		selected := selection.Entity()
		for _, entity := range eb.sorted[start:end] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			label := entity.ID.String()
			if entity.Replicated {
				label += " (replica)"
			}
			if imgui.SelectableBoolV(label, selected == entity.ID, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				selection.Select(entity.ID)
			}

			imgui.TableNextColumn()
			imgui.Text(entity.Name)

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.Components, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", len(entity.Components)))
		}

		imgui.EndTable()
	}

	if len(eb.sorted) > eb.state.perPage {
		totalPages := (len(eb.sorted) + eb.state.perPage - 1) / eb.state.perPage
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.state.currentPage+1, totalPages, len(eb.sorted)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.state.currentPage > 0 {
			eb.state.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.state.currentPage < totalPages-1 {
			eb.state.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(eb.sorted)))
	}
	if snap.Truncated > 0 {
		imgui.Text(fmt.Sprintf("%d entities not captured", snap.Truncated))
	}

	imgui.End()
}

// FilterFamily restricts the browser to members of a family.
func (eb *EntityBrowser) FilterFamily(id int) {
	eb.state.filterFamily = &id
	eb.state.currentPage = 0
}

func pageBounds(total, page, perPage int) (int, int) {
	start := page * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return start, end
}
