package recorder

import "sync"

type Recorder interface {
	RecordEvent(e Event) error
	GetEvents() []Event
	Clear()
}

type InMemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{events: []Event{}}
}

func (r *InMemoryRecorder) RecordEvent(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *InMemoryRecorder) GetEvents() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *InMemoryRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = []Event{}
}
