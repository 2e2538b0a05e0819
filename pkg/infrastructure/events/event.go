package events

import (
	"time"
)

// Event is a domain fact published after a ledger document was saved
type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// Publisher is the write side consumed by the ledger service
type Publisher interface {
	AppendEvent(streamID string, event Event) error
}

type EventStore interface {
	Publisher
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

type BaseEvent struct {
	EventType    string
	Stream       string
	EventData    interface{}
	EventTime    time.Time
	EventVersion int
}

func (e BaseEvent) Type() string         { return e.EventType }
func (e BaseEvent) StreamID() string     { return e.Stream }
func (e BaseEvent) Data() interface{}    { return e.EventData }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }
func (e BaseEvent) Version() int         { return e.EventVersion }

func NewEvent(eventType, streamID string, data interface{}) Event {
	return NewEventAt(eventType, streamID, data, time.Now())
}

func NewEventAt(eventType, streamID string, data interface{}, at time.Time) Event {
	return BaseEvent{
		EventType:    eventType,
		Stream:       streamID,
		EventData:    data,
		EventTime:    at,
		EventVersion: 1,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)
