package ui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/rtx/editor"
)

// Performance graphs frame times and lists per-system and render statistics.
type Performance struct{}

func NewPerformance() *Performance {
	return &Performance{}
}

func (ps *Performance) Draw(ed *editor.Editor) {
	if !imgui.BeginV("Performance Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	avg := ed.Frames.Average()
	imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avg, ed.Frames.FPS()))
	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	samples := ed.Frames.Samples()
	imgui.PlotLinesFloatPtr("##frametime", &samples[0], int32(len(samples)))

	rs := ed.Renderer.Stats()
	imgui.Text(fmt.Sprintf("Draw calls: %d, triangles: %d, lights: %d", rs.DrawCalls, rs.Triangles, rs.Lights))
	imgui.Text(fmt.Sprintf("Render time: %s", rs.Duration))
	if rs.DefaultCamera {
		imgui.Text("Rendering through the default camera")
	}

	if imgui.TreeNodeStr("Systems") {
		stats := ed.Scheduler.GetStats()
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("SystemTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("System")
			imgui.TableSetupColumn("Last")
			imgui.TableSetupColumn("Avg")
			imgui.TableSetupColumn("Max")
			imgui.TableHeadersRow()
			for _, sys := range stats.Systems {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(sys.Name)
				imgui.TableNextColumn()
				imgui.Text(sys.LastDuration.String())
				imgui.TableNextColumn()
				imgui.Text(sys.AvgDuration.String())
				imgui.TableNextColumn()
				imgui.Text(sys.MaxDuration.String())
			}
			imgui.EndTable()
		}
		imgui.Text(fmt.Sprintf("Frames: %d", stats.Frames))
		imgui.TreePop()
	}

	imgui.End()
}
