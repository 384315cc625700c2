package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
)

// PerformanceStats plots frame times and shows world and scheduler statistics.
type PerformanceStats struct {
	state performanceState
	timer *FrameTimer
}

func NewPerformanceStats(historyFrames int) PerformanceStats {
	if historyFrames <= 0 {
		historyFrames = 120
	}
	return PerformanceStats{
		state: performanceState{frameHistory: make([]float32, historyFrames)},
		timer: NewFrameTimer(),
	}
}

// Record adds a frame time in seconds to the history.
func (ps *PerformanceStats) Record(deltaTime float32) {
	ps.state.frameHistory[ps.state.frameIndex] = deltaTime * 1000.0
	ps.state.frameIndex = (ps.state.frameIndex + 1) % len(ps.state.frameHistory)
}

// AverageFrameTime returns the mean of the history in milliseconds.
func (ps *PerformanceStats) AverageFrameTime() float32 {
	var avg float32
	for _, ft := range ps.state.frameHistory {
		avg += ft
	}
	return avg / float32(len(ps.state.frameHistory))
}

func (ps *PerformanceStats) Render(snap *InspectorSnapshot) {
	ps.Record(ps.timer.GetDeltaTime())

	if !imgui.BeginV("Performance Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := snap.World
	imgui.Text(fmt.Sprintf("Step: %d", stats.Step))
	imgui.Text(fmt.Sprintf("Total Entities: %d (%d pending)", stats.TotalEntityCount, stats.PendingCount))
	imgui.Text(fmt.Sprintf("Families: %d", stats.FamilyCount))
	imgui.Text(fmt.Sprintf("Masks: %d", stats.MaskCount))
	imgui.Text(fmt.Sprintf("Services: %d", stats.ServiceCount))

	avgFrameTime := ps.AverageFrameTime()
	imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avgFrameTime, 1000.0/avgFrameTime))
	imgui.Text(fmt.Sprintf("Update Delta: %.2f ms", snap.DeltaTime*1000.0))

	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	imgui.PlotLinesFloatPtr("##frametime", &ps.state.frameHistory[0], int32(len(ps.state.frameHistory)))

	if snap.Scheduler != nil && imgui.TreeNodeStr("System Details") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("SystemStatsTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("System")
			imgui.TableSetupColumn("Timeline")
			imgui.TableSetupColumn("Avg")
			imgui.TableSetupColumn("Max")
			imgui.TableSetupColumn("Failures")
			imgui.TableHeadersRow()

			for _, sys := range snap.Scheduler.Systems {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(sys.Name)
				imgui.TableNextColumn()
				imgui.Text(sys.Timeline.String())
				imgui.TableNextColumn()
				imgui.Text(sys.AvgDuration.String())
				imgui.TableNextColumn()
				imgui.Text(sys.MaxDuration.String())
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%d", sys.Failures))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Component Details") {
		for _, c := range stats.ComponentCounts {
			imgui.BulletText(fmt.Sprintf("%s: %d", c.Name, c.Count))
		}
		imgui.TreePop()
	}

	imgui.End()
}

type FrameTimer struct {
	lastFrameTime time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{
		lastFrameTime: time.Now(),
	}
}

func (ft *FrameTimer) GetDeltaTime() float32 {
	now := time.Now()
	delta := float32(now.Sub(ft.lastFrameTime).Seconds())
	ft.lastFrameTime = now
	return delta
}
