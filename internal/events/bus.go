// Package events carries named events between the UI bridge and the shell's listeners.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Name identifies an event.
type Name string

// Event names shared with the UI and the automation engine.
const (
	// Consumed from the UI / automation engine.
	TaskCompleted     Name = "task-completed"
	AllTasksCompleted Name = "all-tasks-completed"

	// Emitted by the shell.
	LogMessage      Name = "log-message"
	KillPython      Name = "kill-python" // the main window is closing; stop running tasks
	WindowIsVisible Name = "window-is-visible"
)

// ErrUnknownEvent is returned for event names the UI may not emit.
var ErrUnknownEvent = errors.New("unknown event")

// Inbound reports whether the UI or automation engine may emit name.
func Inbound(name Name) bool {
	return name == TaskCompleted || name == AllTasksCompleted
}

// Event is a named event with a JSON payload.
type Event struct {
	Name    Name            `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New creates an event, marshaling v as its payload. A nil v yields no payload.
func New(name Name, v interface{}) (Event, error) {
	if v == nil {
		return Event{Name: name}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: data}, nil
}

// DefaultBuffer is the channel capacity of a subscription. Events beyond it
// wait in the subscription's queue.
const DefaultBuffer = 32

// subscription delivers events in publish order through an unbounded queue,
// so a slow consumer delays its own events but never loses them.
type subscription struct {
	out  chan Event
	wake chan struct{}
	done chan struct{}

	mu    sync.Mutex
	queue []Event
}

func newSubscription() *subscription {
	s := &subscription{
		out:  make(chan Event, DefaultBuffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscription) push(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		e := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- e:
		case <-s.done:
			return
		}
	}
}

// Bus is an in-process publish/subscribe hub. Subscriptions are made once at
// startup and live until Close.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Name][]*subscription
	all    []*subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Name][]*subscription)}
}

func closedChannel() <-chan Event {
	ch := make(chan Event)
	close(ch)
	return ch
}

// Subscribe returns a channel receiving every future event with the given name.
func (b *Bus) Subscribe(name Name) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return closedChannel()
	}
	s := newSubscription()
	b.subs[name] = append(b.subs[name], s)
	return s.out
}

// SubscribeAll returns a channel receiving every future event.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return closedChannel()
	}
	s := newSubscription()
	b.all = append(b.all, s)
	return s.out
}

// Publish queues e for every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs[e.Name] {
		s.push(e)
	}
	for _, s := range b.all {
		s.push(e)
	}
}

// Emit marshals v and publishes it under name.
func (b *Bus) Emit(name Name, v interface{}) error {
	e, err := New(name, v)
	if err != nil {
		return err
	}
	b.Publish(e)
	return nil
}

// Close closes every subscription channel. Events not yet received are
// discarded and publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, s := range subs {
			close(s.done)
		}
	}
	for _, s := range b.all {
		close(s.done)
	}
}
