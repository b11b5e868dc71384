package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/render"
)

// Report collects the configuration and results of one stress run.
type Report struct {
	Duration   time.Duration
	Entities   int
	Components int
	Classes    int
	Churn      int

	TotalUpdates   int64
	TotalTime      time.Duration
	UpdateTime     Stats
	StaleHandles   int
	EventDepth     int
	Scheduler      *ecs.SchedulerStats
	Render         render.Stats
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

// Stats summarizes frame durations.
type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
	Samples []time.Duration
}

// Finalize sorts the samples and fills in the summary fields.
func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}
	slices.Sort(s.Samples)

	var total time.Duration
	for _, sample := range s.Samples {
		total += sample
	}
	s.Min = s.Samples[0]
	s.Max = s.Samples[len(s.Samples)-1]
	s.Avg = total / time.Duration(len(s.Samples))
	s.P50 = s.percentile(50)
	s.P95 = s.percentile(95)
	s.P99 = s.percentile(99)
}

// percentile uses nearest rank over the sorted samples.
func (s *Stats) percentile(p int) time.Duration {
	rank := (p*len(s.Samples) + 99) / 100
	return s.Samples[max(rank, 1)-1]
}

// FPS is the mean frame rate over the whole run.
func (r *Report) FPS() float64 {
	if r.TotalTime <= 0 {
		return 0
	}
	return float64(r.TotalUpdates) / r.TotalTime.Seconds()
}

const reportTemplate = `
# ECS Stress Test Report

## Setup
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Entities}}
- **Component Types:** {{.Components}}
- **Entity Classes:** {{.Classes}}
- **Churn Per Frame:** {{.Churn}}

## Frames
- **Frames:** {{.TotalUpdates}} in {{.TotalTime}} ({{printf "%.1f" .FPS}} fps)
{{with .UpdateTime}}- **Frame Time:** avg {{.Avg}}, p50 {{.P50}}, p95 {{.P95}}, p99 {{.P99}}, min {{.Min}}, max {{.Max}}
{{end}}- **Stale Handles:** {{.StaleHandles}}
- **Max Event Call Depth:** {{.EventDepth}}
- **Last Frame:** {{.Render.DrawCalls}} draws, {{.Render.Triangles}} triangles, {{.Render.Lights}} lights
{{with .Scheduler}}
## Systems ({{.SystemCount}})
{{range .Systems}}- {{.Name}}: avg {{.AvgDuration}}, min {{.MinDuration}}, max {{.MaxDuration}} over {{.ExecutionCount}} runs
{{end}}{{end}}
## Memory
{{with $s := .MemStatsStart}}{{with $e := $.MemStatsEnd}}- Heap Alloc:  {{mb $s.HeapAlloc}} -> {{mb $e.HeapAlloc}} MiB
- Total Alloc: {{mb $s.TotalAlloc}} -> {{mb $e.TotalAlloc}} MiB
- Sys:         {{mb $s.Sys}} -> {{mb $e.Sys}} MiB
- Heap In Use: {{mb $e.HeapInuse}} MiB
- GC Cycles:   {{gcs $s $e}}
{{if $.GCPauseMetrics}}- GC Pause:    {{ns $e.PauseTotalNs}} total
{{end}}{{end}}{{end}}`

var reportFuncs = template.FuncMap{
	"mb": func(v uint64) string {
		return fmt.Sprintf("%.2f", float64(v)/1024/1024)
	},
	"gcs": func(start, end runtime.MemStats) uint32 {
		return end.NumGC - start.NumGC
	},
	"ns": func(ns uint64) string {
		return time.Duration(ns).String()
	},
}

// Generate writes the report as markdown.
func (r *Report) Generate(w io.Writer) error {
	tmpl, err := template.New("report").Funcs(reportFuncs).Parse(reportTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, r)
}
