package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/rtx/editor"
	"github.com/plus3/rtx/event"
)

// EventTable shows the subscription table, the recent event log and lets the
// user call an event by hand.
type EventTable struct {
	filter  string
	name    string
	payload string
}

func NewEventTable() *EventTable {
	return &EventTable{}
}

func (et *EventTable) Draw(ed *editor.Editor) {
	if !imgui.BeginV("Events", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.SetNextItemWidth(160)
	imgui.InputTextWithHint("##event", "Event name", &et.name, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	imgui.SetNextItemWidth(160)
	imgui.InputTextWithHint("##payload", "Payload", &et.payload, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Call") && et.name != "" {
		ed.Events.Call(et.name, editor.Origin, parsePayload(et.payload))
	}

	if imgui.TreeNodeStr("Subscriptions") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("SubscriptionTable", 2, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Event")
			imgui.TableSetupColumn("Subscriber")
			imgui.TableHeadersRow()
			for _, sub := range ed.Events.Subscriptions() {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(sub.Event)
				imgui.TableNextColumn()
				imgui.Text(string(sub.Subscriber))
			}
			imgui.EndTable()
		}
		imgui.TreePop()
	}

	imgui.Separator()
	imgui.InputTextWithHint("##logfilter", "Filter...", &et.filter, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	paused := ed.Log.Paused()
	if imgui.Checkbox("Pause", &paused) {
		ed.Log.SetPaused(paused)
	}
	imgui.SameLine()
	if imgui.Button("Clear") {
		ed.Log.Clear()
	}

	const logFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EventLog", 4, logFlags, imgui.NewVec2(0, 240), 0) {
		imgui.TableSetupColumn("#")
		imgui.TableSetupColumn("Event")
		imgui.TableSetupColumn("Origin")
		imgui.TableSetupColumn("Payload")
		imgui.TableHeadersRow()
		entries := ed.Log.Entries(et.filter)
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", entry.Seq))
			imgui.TableNextColumn()
			imgui.Text(entry.Name)
			imgui.TableNextColumn()
			imgui.Text(entry.Origin)
			imgui.TableNextColumn()
			imgui.Text(entry.Payload)
		}
		imgui.EndTable()
	}
	imgui.Text(fmt.Sprintf("Recorded: %d, call depth high water: %d", ed.Log.Total(), ed.Events.MaxDepth()))

	imgui.End()
}

// parsePayload reads the payload box: empty is nil, true/false are booleans,
// numbers are numbers and anything else is a string.
func parsePayload(text string) event.Variant {
	text = strings.TrimSpace(text)
	switch text {
	case "":
		return event.Nil()
	case "true":
		return event.Bool(true)
	case "false":
		return event.Bool(false)
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return event.Number(n)
	}
	return event.String(text)
}
