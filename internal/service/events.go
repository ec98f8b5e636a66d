package service

// EventType defines the type of event.
type EventType string

const (
	EventLinkCreated        EventType = "link_created"
	EventLinkStatusChanged  EventType = "link_status_changed"
	EventTopologyReconciled EventType = "topology_reconciled"
)

// Event represents something that happened in the system.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events.
type EventBus struct {
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events.
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers. Safe on a nil bus.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
