package editor

import "time"

// FrameHistory is a fixed window of frame times in milliseconds for the
// performance graph.
type FrameHistory struct {
	samples []float32
	index   int
	filled  int
}

func NewFrameHistory(frames int) *FrameHistory {
	return &FrameHistory{samples: make([]float32, max(frames, 1))}
}

func (h *FrameHistory) Push(ms float32) {
	h.samples[h.index] = ms
	h.index = (h.index + 1) % len(h.samples)
	h.filled = min(h.filled+1, len(h.samples))
}

// Samples returns the ring buffer in storage order, as PlotLines expects.
func (h *FrameHistory) Samples() []float32 { return h.samples }

// Average returns the mean of the pushed samples, zero before the first push.
func (h *FrameHistory) Average() float32 {
	if h.filled == 0 {
		return 0
	}
	var sum float32
	for i := range h.filled {
		sum += h.samples[(h.index-1-i+len(h.samples))%len(h.samples)]
	}
	return sum / float32(h.filled)
}

// FPS derives frames per second from the average frame time.
func (h *FrameHistory) FPS() float32 {
	avg := h.Average()
	if avg == 0 {
		return 0
	}
	return 1000 / avg
}

// FrameTimer measures wall time between calls.
type FrameTimer struct {
	last time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{last: time.Now()}
}

// DeltaMs returns the milliseconds since the previous call.
func (ft *FrameTimer) DeltaMs() float32 {
	now := time.Now()
	delta := float32(now.Sub(ft.last).Seconds() * 1000)
	ft.last = now
	return delta
}
