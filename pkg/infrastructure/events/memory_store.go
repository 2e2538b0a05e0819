package events

import (
	"sync"

	"go.uber.org/zap"
)

type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	position    int
	allEvents   []Event
	logger      *zap.Logger
	sync        bool
	inflight    sync.WaitGroup
}

// Option configures an InMemoryEventStore
type Option func(*InMemoryEventStore)

// WithSynchronousDelivery makes AppendEvent call handlers before returning
func WithSynchronousDelivery() Option {
	return func(s *InMemoryEventStore) { s.sync = true }
}

func NewInMemoryEventStore(logger *zap.Logger, opts ...Option) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	eventWithVersion := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.position++
	handlers := append([]EventHandler(nil), s.subscribers[event.Type()]...)
	s.mutex.Unlock()

	s.notifySubscribers(handlers, eventWithVersion)
	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}
	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		kept := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				kept = append(kept, h)
			}
		}
		s.subscribers[eventType] = kept
	}
	return nil
}

// Wait blocks until every asynchronous delivery started so far has finished
func (s *InMemoryEventStore) Wait() {
	s.inflight.Wait()
}

func (s *InMemoryEventStore) notifySubscribers(handlers []EventHandler, event Event) {
	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		if s.sync {
			s.deliver(handler, event)
			continue
		}
		s.inflight.Add(1)
		go func(h EventHandler, e Event) {
			defer s.inflight.Done()
			s.deliver(h, e)
		}(handler, event)
	}
}

func (s *InMemoryEventStore) deliver(h EventHandler, e Event) {
	if err := h.Handle(e); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", e.Type()),
			zap.String("stream_id", e.StreamID()),
			zap.Error(err),
		)
	}
}
