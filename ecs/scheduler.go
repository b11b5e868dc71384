package ecs

import (
	"context"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SchedulerStats is a snapshot of scheduler timings.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Frames          uint64
	Systems         []SystemStats
}

// SystemStats holds the timings of a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

// NamedSystem lets a system choose the name it is reported under.
type NamedSystem interface {
	System
	SystemName() string
}

type scheduledSystem struct {
	system System
	stats  SystemStats
}

func (s *scheduledSystem) record(d time.Duration) {
	st := &s.stats
	if st.ExecutionCount == 0 || d < st.MinDuration {
		st.MinDuration = d
	}
	st.MaxDuration = max(st.MaxDuration, d)
	st.ExecutionCount++
	st.LastDuration = d
	st.TotalDuration += d
	st.AvgDuration = st.TotalDuration / time.Duration(st.ExecutionCount)
}

// Scheduler runs registered systems in registration order, one frame at a time.
// Everything a frame does runs to completion on the calling goroutine.
type Scheduler struct {
	storage    *Storage
	logger     *zap.Logger
	systems    []*scheduledSystem
	afterFrame []func(frame *UpdateFrame)
	frames     uint64
}

// NewScheduler creates a scheduler driving storage. A nil logger discards output.
func NewScheduler(storage *Storage, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{storage: storage, logger: logger}
}

// Storage returns the storage the scheduler drives.
func (s *Scheduler) Storage() *Storage {
	return s.storage
}

// Register adds a system to the scheduler and initializes its View, Query and Singleton fields.
func (s *Scheduler) Register(system System) {
	s.initializeFields(system)
	s.systems = append(s.systems, &scheduledSystem{
		system: system,
		stats:  SystemStats{Name: systemName(system)},
	})
}

func systemName(system System) string {
	if named, ok := system.(NamedSystem); ok {
		return named.SystemName()
	}
	t := reflect.TypeOf(system)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// AfterFrame registers fn to run after the command buffer has been flushed.
func (s *Scheduler) AfterFrame(fn func(frame *UpdateFrame)) {
	s.afterFrame = append(s.afterFrame, fn)
}

// initializeFields calls Init on every exported Query, View or Singleton field.
func (s *Scheduler) initializeFields(system System) {
	v := reflect.ValueOf(system)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	storage := reflect.ValueOf(s.storage)
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}

		typeName := field.Type().Name()
		if !strings.HasPrefix(typeName, "Query[") &&
			!strings.HasPrefix(typeName, "View[") &&
			!strings.HasPrefix(typeName, "Singleton[") {
			continue
		}

		init := field.Addr().MethodByName("Init")
		if !init.IsValid() {
			panic("ecs: Init method not found on field " + v.Type().Field(i).Name)
		}
		init.Call([]reflect.Value{storage})
	}
}

// Once executes every system with deltaMs, flushes the frame's commands and then
// runs the AfterFrame hooks.
func (s *Scheduler) Once(deltaMs float32) {
	frame := newUpdateFrame(deltaMs, s.frames, s.storage)

	for _, entry := range s.systems {
		start := time.Now()
		entry.system.Execute(frame)
		entry.record(time.Since(start))
	}

	for _, err := range frame.Commands.Flush(s.storage) {
		s.logger.Warn("deferred command failed", zap.Uint64("frame", frame.Index), zap.Error(err))
	}

	for _, fn := range s.afterFrame {
		fn(frame)
	}
	s.frames++
}

// Run calls Once every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Once(float32(now.Sub(last).Seconds() * 1000))
			last = now
		}
	}
}

// GetStats returns a copy of the per-system timings.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Frames:      s.frames,
		Systems:     make([]SystemStats, len(s.systems)),
	}
	for i, entry := range s.systems {
		stats.Systems[i] = entry.stats
		stats.TotalExecutions += entry.stats.ExecutionCount
	}
	return stats
}
