package docstore

import (
	"context"
	"sync"
)

// Notifier fans change notifications out to watchers. Messages carry no
// document data: a watcher reacts by re-reading its snapshot.
type Notifier interface {
	Subscribe(topic string) chan []byte
	Unsubscribe(topic string, ch chan []byte)
	Publish(ctx context.Context, topic string, msg []byte) error
}

// Broker is an in-process Notifier keyed by topic.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives every message published on topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the topic's subscribers.
func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish delivers msg to all subscribers of topic without blocking.
func (b *Broker) Publish(_ context.Context, topic string, msg []byte) error {
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- msg:
		default:
			// A full buffer already holds a pending wake-up.
		}
	}
	b.mu.RUnlock()
	return nil
}
