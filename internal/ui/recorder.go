package ui

import (
	"context"
	"sync"
)

// EventKind identifies what a Recorder captured.
type EventKind string

const (
	EventConfirm  EventKind = "confirm"
	EventNotice   EventKind = "notice"
	EventReload   EventKind = "reload"
	EventNavigate EventKind = "navigate"
	EventMessage  EventKind = "message"
)

// Event is one captured interaction.
type Event struct {
	Kind      EventKind `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Indicator Indicator `json:"indicator,omitempty"`
}

// Recorder captures interactions in order instead of rendering them. The HTTP
// front end turns a recording into a response; tests assert on it.
type Recorder struct {
	Answer     bool
	ReloadFunc func(ctx context.Context) error

	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Confirm records the prompt and returns the configured answer.
func (r *Recorder) Confirm(_ context.Context, prompt string) bool {
	r.add(Event{Kind: EventConfirm, Text: prompt})
	return r.Answer
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.add(Event{Kind: EventNotice, Text: n.Message, Indicator: n.Indicator})
}

// Reload implements Reloader, delegating to ReloadFunc when set.
func (r *Recorder) Reload(ctx context.Context) error {
	r.add(Event{Kind: EventReload})
	if r.ReloadFunc != nil {
		return r.ReloadFunc(ctx)
	}
	return nil
}

// Navigate implements Navigator.
func (r *Recorder) Navigate(_ context.Context, target string) {
	r.add(Event{Kind: EventNavigate, Text: target})
}

// Print implements Printer.
func (r *Recorder) Print(_ context.Context, msg string) {
	r.add(Event{Kind: EventMessage, Text: msg})
}

// Events returns a copy of everything captured so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Notices returns only the captured notices.
func (r *Recorder) Notices() []Notice {
	var out []Notice
	for _, e := range r.Events() {
		if e.Kind == EventNotice {
			out = append(out, Notice{Message: e.Text, Indicator: e.Indicator})
		}
	}
	return out
}

// Last returns the most recent event of kind, if any.
func (r *Recorder) Last(kind EventKind) (Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return events[i], true
		}
	}
	return Event{}, false
}

// Count returns how many events of kind were captured.
func (r *Recorder) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
