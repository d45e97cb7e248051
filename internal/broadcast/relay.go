package broadcast

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type scope string

const (
	scopeVenue scope = "venue"
	scopeUser  scope = "user"
)

// DeliverFunc hands a relayed message to the local hub.
type DeliverFunc func(channel string, payload []byte)

// Relay moves published messages to every instance serving a venue.
type Relay interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe blocks, calling deliver for every message, until ctx is done.
	Subscribe(ctx context.Context, deliver DeliverFunc) error
}

type channels struct {
	prefix string
}

func (c channels) venue(venueID string) string {
	return c.prefix + ":" + string(scopeVenue) + ":" + venueID
}

func (c channels) user(userID string) string {
	return c.prefix + ":" + string(scopeUser) + ":" + userID
}

func (c channels) parse(channel string) (scope, string, bool) {
	rest, ok := strings.CutPrefix(channel, c.prefix+":")
	if !ok {
		return "", "", false
	}
	kind, target, ok := strings.Cut(rest, ":")
	if !ok || target == "" {
		return "", "", false
	}
	switch scope(kind) {
	case scopeVenue, scopeUser:
		return scope(kind), target, true
	}
	return "", "", false
}

// RedisRelay fans messages out through Redis pub/sub so every instance re-emits
// them to its own connections.
type RedisRelay struct {
	redisClient redis.UniversalClient
	channels    channels
	logger      *logrus.Logger
}

func NewRedisRelay(redisClient redis.UniversalClient, prefix string, logger *logrus.Logger) *RedisRelay {
	return &RedisRelay{
		redisClient: redisClient,
		channels:    channels{prefix: prefix},
		logger:      logger,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", channel)
	}
	return nil
}

func (r *RedisRelay) Subscribe(ctx context.Context, deliver DeliverFunc) error {
	ps := r.redisClient.PSubscribe(ctx,
		r.channels.prefix+":"+string(scopeVenue)+":*",
		r.channels.prefix+":"+string(scopeUser)+":*",
	)
	defer func() {
		if err := ps.Close(); err != nil {
			r.logger.Warnf("relay: failed to close subscription: %v", err)
		}
	}()

	if _, err := ps.Receive(ctx); err != nil {
		return errors.Wrap(err, "failed to subscribe to relay channels")
	}
	r.logger.Infof("relay: subscribed to %s:*", r.channels.prefix)

	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("relay subscription closed")
			}
			deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}

// LocalRelay delivers in-process, for single-instance deployments and tests.
// Messages published while nobody is subscribed are dropped.
type LocalRelay struct {
	mu      sync.RWMutex
	deliver DeliverFunc
}

func NewLocalRelay() *LocalRelay {
	return &LocalRelay{}
}

func (r *LocalRelay) Publish(_ context.Context, channel string, payload []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.deliver != nil {
		r.deliver(channel, payload)
	}
	return nil
}

func (r *LocalRelay) Subscribe(ctx context.Context, deliver DeliverFunc) error {
	r.mu.Lock()
	r.deliver = deliver
	r.mu.Unlock()

	<-ctx.Done()

	r.mu.Lock()
	r.deliver = nil
	r.mu.Unlock()
	return nil
}
