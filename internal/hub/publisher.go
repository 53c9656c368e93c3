package hub

import (
	"encoding/json"
	"log"

	"deskline/internal/queue"
)

// Publisher adapts the hub to the queue.Publisher contract.
type Publisher struct {
	hub *Hub
}

func NewPublisher(h *Hub) *Publisher {
	return &Publisher{hub: h}
}

func (p *Publisher) Publish(channel string, event queue.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal %s event: %v", event.Type, err)
		return
	}
	p.hub.Broadcast(channel, payload)
}
