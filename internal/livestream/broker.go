package livestream

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PageviewEvent is the transient message fanned out to dashboard
// subscribers. It is never persisted and has no replay.
type PageviewEvent struct {
	Type       string    `json:"type"`
	Path       string    `json:"path"`
	Country    string    `json:"country"`
	Browser    string    `json:"browser"`
	DeviceType string    `json:"device_type"`
	TS         time.Time `json:"ts"`
}

// subscriberBuffer bounds how far a slow consumer can lag before messages
// are dropped for it.
const subscriberBuffer = 16

// Subscription is one dashboard connection's view of a site's live feed.
type Subscription struct {
	C      <-chan PageviewEvent
	id     string
	siteID string
	broker *Broker
}

// Close deregisters the subscription. Safe to call once per subscription;
// the channel is closed by the broker.
func (s *Subscription) Close() {
	s.broker.unsubscribe(s.siteID, s.id)
}

// Broker is an in-process broadcast bus keyed by site. One publish reaches
// every current subscriber for that site; subscribers joining later never see
// it. For multi-instance deployments this must be replaced by an external
// broker.
type Broker struct {
	mu    sync.RWMutex
	sites map[string]map[string]chan PageviewEvent
}

// NewBroker returns an empty bus.
func NewBroker() *Broker {
	return &Broker{sites: make(map[string]map[string]chan PageviewEvent)}
}

// Subscribe registers a new listener for siteID.
func (b *Broker) Subscribe(siteID string) *Subscription {
	ch := make(chan PageviewEvent, subscriberBuffer)
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.sites[siteID]
	if !ok {
		subs = make(map[string]chan PageviewEvent)
		b.sites[siteID] = subs
	}
	subs[id] = ch
	return &Subscription{C: ch, id: id, siteID: siteID, broker: b}
}

// Publish fans evt out to the site's current subscribers without blocking:
// a subscriber whose buffer is full simply misses the message.
func (b *Broker) Publish(siteID string, evt PageviewEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.sites[siteID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount reports the number of open subscriptions for a site.
func (b *Broker) SubscriberCount(siteID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sites[siteID])
}

func (b *Broker) unsubscribe(siteID, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.sites[siteID]
	if !ok {
		return
	}
	ch, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	close(ch)
	if len(subs) == 0 {
		delete(b.sites, siteID)
	}
}
