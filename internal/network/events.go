package network

import (
	"log/slog"
	"slices"
	"sync"
)

// Event types
const (
	EventDriverReady  = "driver_ready"
	EventDriverReset  = "driver_reset"
	EventNetworkReady = "network_ready"
	EventNodeAdded    = "node_added"
	EventNodeRemoved  = "node_removed"
	EventNodeNaming   = "node_naming"
	EventNodeReady    = "node_ready"
	EventNodeEvent    = "node_event"
	EventValueAdded   = "value_added"
	EventValueChanged = "value_changed"
	EventValueRemoved = "value_removed"
	EventGroupChanged = "group_changed"
)

// Event represents a network event.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NodeID returns the node an event is about. Network-wide events report
// false.
func (e Event) NodeID() (uint8, bool) {
	switch d := e.Data.(type) {
	case NodeEventData:
		return d.NodeID, true
	case ValueEventData:
		return d.NodeID, true
	}
	return 0, false
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventFilter selects the events a subscription receives. An empty Types
// list matches every type; a zero NodeID matches every node and the
// network-wide events.
type EventFilter struct {
	Types  []string `json:"types,omitempty"`
	NodeID uint8    `json:"node_id,omitempty"`
}

// Match reports whether e passes the filter.
func (f EventFilter) Match(e Event) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	if f.NodeID == 0 {
		return true
	}
	id, ok := e.NodeID()
	return ok && id == f.NodeID
}

type subscription struct {
	id      uint64
	filter  EventFilter
	handler EventHandler
}

// EventBus fans network events out to subscribers in subscription order.
type EventBus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{logger: logger}
}

// Subscribe registers a handler for the events matching filter.
// Returns an unsubscribe function.
func (eb *EventBus) Subscribe(filter EventFilter, handler EventHandler) func() {
	filter.Types = slices.Clone(filter.Types)

	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	eb.subs = append(eb.subs, subscription{id: id, filter: filter, handler: handler})
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.subs = slices.DeleteFunc(eb.subs, func(s subscription) bool { return s.id == id })
	}
}

// On registers a handler for a specific event type.
func (eb *EventBus) On(eventType string, handler EventHandler) func() {
	return eb.Subscribe(EventFilter{Types: []string{eventType}}, handler)
}

// OnNode registers a handler for every event about one node.
func (eb *EventBus) OnNode(nodeID uint8, handler EventHandler) func() {
	return eb.Subscribe(EventFilter{NodeID: nodeID}, handler)
}

// OnAll registers a handler that receives all events.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	return eb.Subscribe(EventFilter{}, handler)
}

// Len returns the number of live subscriptions.
func (eb *EventBus) Len() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subs)
}

// Emit sends an event to all matching handlers.
// Handlers are called synchronously; a panicking handler is recovered.
func (eb *EventBus) Emit(event Event) {
	eb.mu.RLock()
	var handlers []EventHandler
	for _, s := range eb.subs {
		if s.filter.Match(event) {
			handlers = append(handlers, s.handler)
		}
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		eb.call(h, event)
	}
}

func (eb *EventBus) call(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
		}
	}()
	h(event)
}
