package broadcast

import (
	"context"
	"encoding/json"

	"encore/queue-gateway/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Broadcaster publishes queue events to the relay and re-emits relayed
// messages to the connections registered in its hub.
type Broadcaster struct {
	hub      *Hub
	relay    Relay
	channels channels
	opts     ClientOptions
	logger   *logrus.Logger
}

func NewBroadcaster(hub *Hub, relay Relay, prefix string, opts ClientOptions, logger *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		hub:      hub,
		relay:    relay,
		channels: channels{prefix: prefix},
		opts:     opts,
		logger:   logger,
	}
}

func (b *Broadcaster) Hub() *Hub { return b.hub }

// Publish sends a venue event to every viewer of the venue on every instance.
func (b *Broadcaster) Publish(ctx context.Context, event domain.VenueEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal venue event")
	}
	return b.relay.Publish(ctx, b.channels.venue(event.VenueID), payload)
}

// PublishToUser targets the connections of one user. A user with no open
// connection simply misses the event.
func (b *Broadcaster) PublishToUser(ctx context.Context, event domain.UserEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal user event")
	}
	return b.relay.Publish(ctx, b.channels.user(event.UserID), payload)
}

// Notify is the publish step for a committed mutation: the venue event first,
// then each private event. Failures are logged, never returned, since
// delivery is best-effort.
func (b *Broadcaster) Notify(ctx context.Context, m domain.Mutation) {
	if m.VenueEvent.Type != "" {
		if err := b.Publish(ctx, m.VenueEvent); err != nil {
			b.logger.WithContext(ctx).Warnf("broadcast: venue %s event %s: %v", m.VenueEvent.VenueID, m.VenueEvent.Type, err)
		}
	}

	for _, ev := range m.UserEvents {
		if ev.UserID == "" {
			continue
		}
		if err := b.PublishToUser(ctx, ev); err != nil {
			b.logger.WithContext(ctx).Warnf("broadcast: user %s event %s: %v", ev.UserID, ev.Type, err)
		}
	}
}

// Run consumes the relay until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	return b.relay.Subscribe(ctx, b.deliver)
}

func (b *Broadcaster) deliver(channel string, payload []byte) {
	kind, target, ok := b.channels.parse(channel)
	if !ok {
		b.logger.Warnf("broadcast: ignoring message on unexpected channel %s", channel)
		return
	}

	switch kind {
	case scopeVenue:
		b.hub.deliverVenue(target, payload)
	case scopeUser:
		b.hub.deliverUser(target, payload)
	}
}

// Attach registers a websocket connection for a venue, queues the initial
// message and starts its pumps. The connection is torn down and unregistered
// when the peer goes away.
func (b *Broadcaster) Attach(conn *websocket.Conn, venueID, userID string, initial interface{}) error {
	c := newClient(b.hub, conn, venueID, userID, b.opts)

	if initial != nil {
		msg, err := json.Marshal(initial)
		if err != nil {
			return errors.Wrap(err, "failed to marshal initial message")
		}
		c.send <- msg
	}

	b.hub.Register(c)
	go c.writePump()
	go c.readPump()

	b.logger.Debugf("broadcast: viewer attached to venue %s (user %q)", venueID, userID)
	return nil
}
