package editor

import (
	"strings"
	"time"

	"github.com/plus3/rtx/event"
)

// LogEntry is one dispatched event as the event table shows it.
type LogEntry struct {
	Seq     uint64
	Time    time.Time
	Name    string
	Origin  string
	Payload string
}

// EventLog keeps the most recent dispatched events in a ring.
type EventLog struct {
	entries []LogEntry
	next    int
	seq     uint64
	paused  bool
}

func NewEventLog(capacity int) *EventLog {
	return &EventLog{entries: make([]LogEntry, 0, max(capacity, 1))}
}

// Record appends e, overwriting the oldest entry when the ring is full.
func (l *EventLog) Record(e *event.Event) {
	if l.paused {
		return
	}
	l.seq++
	entry := LogEntry{
		Seq:     l.seq,
		Time:    time.Now(),
		Name:    e.Name(),
		Origin:  e.Origin(),
		Payload: e.Payload().String(),
	}
	if len(l.entries) < cap(l.entries) {
		l.entries = append(l.entries, entry)
		return
	}
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
}

// Entries returns the recorded events oldest first. A non-empty filter keeps
// entries whose name or origin contains it, ignoring case.
func (l *EventLog) Entries(filter string) []LogEntry {
	out := make([]LogEntry, 0, len(l.entries))
	filter = strings.ToLower(filter)
	for i := range l.entries {
		entry := l.entries[(l.next+i)%len(l.entries)]
		if filter != "" &&
			!strings.Contains(strings.ToLower(entry.Name), filter) &&
			!strings.Contains(strings.ToLower(entry.Origin), filter) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Total returns how many events were recorded since the last Clear.
func (l *EventLog) Total() uint64 { return l.seq }

func (l *EventLog) Clear() {
	l.entries = l.entries[:0]
	l.next = 0
	l.seq = 0
}

func (l *EventLog) SetPaused(paused bool) { l.paused = paused }

func (l *EventLog) Paused() bool { return l.paused }
