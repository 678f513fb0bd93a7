package core

import "sync"

// Notifier receives event notifications from every component on state
// changes. Implementations must be non-blocking and must never panic
// back into the core.
type Notifier interface {
	Notify(eventType string, payload map[string]any)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(eventType string, payload map[string]any)

// Notify implements Notifier.
func (f NotifierFunc) Notify(eventType string, payload map[string]any) {
	f(eventType, payload)
}

// NoopNotifier drops all events.
func NoopNotifier() Notifier {
	return NotifierFunc(func(string, map[string]any) {})
}

// MultiNotifier fans an event out to several sinks.
func MultiNotifier(sinks ...Notifier) Notifier {
	return NotifierFunc(func(eventType string, payload map[string]any) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(eventType, payload)
			}
		}
	})
}

// Event is one recorded notification.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// EventLog is a bounded in-memory record of notifications, oldest evicted
// first. It doubles as a Notifier so it can sit in a MultiNotifier chain.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

// NewEventLog creates a log bounded to capacity entries.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = 2000
	}
	return &EventLog{cap: capacity}
}

// Notify implements Notifier.
func (l *EventLog) Notify(eventType string, payload map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{Type: eventType, Payload: payload})
	if len(l.events) > l.cap {
		l.events = l.events[len(l.events)-l.cap:]
	}
}

// Dump returns up to limit of the most recent events, newest last.
func (l *EventLog) Dump(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]Event, limit)
	copy(out, l.events[len(l.events)-limit:])
	return out
}
