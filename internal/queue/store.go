package queue

import (
	"context"
	"encoding/json"
	"strings"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RemoveGuard restricts Remove to items owned by RequesterID and/or currently
// in one of Statuses. Zero values disable the check.
type RemoveGuard struct {
	RequesterID string
	Statuses    []domain.Status
}

// PromoteOptions shapes one promotion. Finished is stamped on the item leaving
// the current slot. RequireCurrent refuses to promote into an empty slot, and
// a non-empty ExpectCurrentID refuses when another item is playing.
type PromoteOptions struct {
	Finished        domain.Status
	ApprovedOnly    bool
	RequireCurrent  bool
	ExpectCurrentID string
}

func (s *RedisStore) IsQueued(ctx context.Context, venueID, trackID string) (bool, error) {
	queued, err := s.redisClient.SIsMember(ctx, keysFor(venueID).tracks, trackID).Result()
	if err != nil {
		return false, storeError("is queued", err)
	}
	return queued, nil
}

// Len returns the combined length of both lanes.
func (s *RedisStore) Len(ctx context.Context, venueID string) (int, error) {
	keys := keysFor(venueID)

	pipe := s.redisClient.Pipeline()
	priority := pipe.LLen(ctx, keys.priority)
	standard := pipe.LLen(ctx, keys.standard)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, storeError("len", err)
	}

	return int(priority.Val() + standard.Val()), nil
}

// Enqueue re-checks the dedup set, appends the item to its lane and records
// its track id in one script run. maxLength <= 0 disables the cap.
func (s *RedisStore) Enqueue(ctx context.Context, item domain.QueueItem, maxLength int) (domain.Position, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return domain.Position{}, errors.Wrap(err, "failed to marshal queue item")
	}

	keys := keysFor(item.VenueID)
	res, err := s.enqueueScript.Run(ctx, s.redisClient,
		[]string{keys.tracks, keys.priority, keys.standard},
		item.ExternalTrackID, string(item.Lane), payload, maxLength,
	).Result()
	if err != nil {
		return domain.Position{}, storeError("enqueue", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return domain.Position{}, storeError("enqueue", errors.Errorf("unexpected reply %T", res))
	}
	rank, _ := values[0].(int64)
	overall, _ := values[1].(int64)

	switch rank {
	case codeDuplicate:
		return domain.Position{}, errors.Wrapf(constant.ErrDuplicate, "track %s", item.ExternalTrackID)
	case codeFull:
		return domain.Position{}, errors.Wrapf(constant.ErrQueueFull, "venue %s holds %d items", item.VenueID, maxLength)
	}

	return domain.Position{Lane: int(rank), Overall: int(overall)}, nil
}

// Dequeue removes an item from whichever lane holds it and releases trackID
// from the dedup set.
func (s *RedisStore) Dequeue(ctx context.Context, venueID, itemID, trackID string) (bool, error) {
	_, err := s.remove(ctx, venueID, itemID, trackID, RemoveGuard{})
	if errors.Is(err, constant.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remove is Dequeue with ownership and status checks evaluated inside the
// same script run. It returns the removed item.
func (s *RedisStore) Remove(ctx context.Context, venueID, itemID string, guard RemoveGuard) (*domain.QueueItem, error) {
	return s.remove(ctx, venueID, itemID, "", guard)
}

func (s *RedisStore) remove(ctx context.Context, venueID, itemID, trackID string, guard RemoveGuard) (*domain.QueueItem, error) {
	statuses := make([]string, 0, len(guard.Statuses))
	for _, st := range guard.Statuses {
		statuses = append(statuses, string(st))
	}

	keys := keysFor(venueID)
	res, err := s.removeScript.Run(ctx, s.redisClient,
		[]string{keys.tracks, keys.priority, keys.standard},
		itemID, trackID, guard.RequesterID, strings.Join(statuses, " "),
	).Result()
	if err != nil {
		return nil, storeError("remove", err)
	}

	code, raw, err := scriptReply(res)
	if err != nil {
		return nil, storeError("remove", err)
	}

	switch code {
	case codeNotFound:
		return nil, errors.Wrapf(constant.ErrNotFound, "queue item %s", itemID)
	case codeNotOwner:
		return nil, errors.Wrapf(constant.ErrForbidden, "queue item %s belongs to another user", itemID)
	case codeWrongStatus:
		item, _ := decodeItem(raw)
		return item, errors.Wrapf(constant.ErrInvalidTransition, "queue item %s", itemID)
	}

	return decodeItem(raw)
}

// SetStatus moves a queued item from one status to another in place.
func (s *RedisStore) SetStatus(ctx context.Context, venueID, itemID string, from, to domain.Status) (*domain.QueueItem, error) {
	keys := keysFor(venueID)
	res, err := s.setStatusScript.Run(ctx, s.redisClient,
		[]string{keys.priority, keys.standard},
		itemID, string(from), string(to),
	).Result()
	if err != nil {
		return nil, storeError("set status", err)
	}

	code, raw, err := scriptReply(res)
	if err != nil {
		return nil, storeError("set status", err)
	}

	switch code {
	case codeNotFound:
		return nil, errors.Wrapf(constant.ErrNotFound, "queue item %s", itemID)
	case codeWrongStatus:
		return nil, errors.Wrapf(constant.ErrInvalidTransition, "queue item %s is not %s", itemID, from)
	}

	return decodeItem(raw)
}

// PromoteNext finishes the current item, releasing its track, and moves the
// combined-order head into the current slot in one script run. With
// ApprovedOnly the head is the first approved item instead.
func (s *RedisStore) PromoteNext(ctx context.Context, venueID string, opts PromoteOptions) (*domain.Promotion, error) {
	keys := keysFor(venueID)
	res, err := s.promoteScript.Run(ctx, s.redisClient,
		[]string{keys.tracks, keys.priority, keys.standard, keys.current},
		flag(opts.ApprovedOnly), string(domain.StatusPlaying),
		string(opts.Finished), flag(opts.RequireCurrent), opts.ExpectCurrentID,
	).Result()
	if err != nil {
		return nil, storeError("promote next", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return nil, storeError("promote next", errors.Errorf("unexpected reply %T", res))
	}

	if code, _ := values[0].(int64); code == codeWrongStatus {
		if opts.ExpectCurrentID != "" {
			return nil, errors.Wrapf(constant.ErrInvalidTransition, "item %s is no longer playing at venue %s", opts.ExpectCurrentID, venueID)
		}
		return nil, errors.Wrapf(constant.ErrInvalidTransition, "nothing is playing at venue %s", venueID)
	}

	promotion := &domain.Promotion{}
	if raw, _ := values[1].(string); raw != "" {
		if promotion.Previous, err = decodeItem(raw); err != nil {
			return nil, err
		}
	}
	if raw, _ := values[2].(string); raw != "" {
		if promotion.Current, err = decodeItem(raw); err != nil {
			return nil, err
		}
	}

	return promotion, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Snapshot reads both lanes and the current slot in one round trip. The reads
// are pipelined, not transactional; the result only drives display.
func (s *RedisStore) Snapshot(ctx context.Context, venueID string) (*domain.Snapshot, error) {
	keys := keysFor(venueID)

	pipe := s.redisClient.Pipeline()
	priority := pipe.LRange(ctx, keys.priority, 0, -1)
	standard := pipe.LRange(ctx, keys.standard, 0, -1)
	current := pipe.Get(ctx, keys.current)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, storeError("snapshot", err)
	}

	snapshot := &domain.Snapshot{VenueID: venueID}

	var err error
	if snapshot.PriorityItems, err = decodeItems(priority.Val()); err != nil {
		return nil, err
	}
	if snapshot.StandardItems, err = decodeItems(standard.Val()); err != nil {
		return nil, err
	}
	if raw := current.Val(); raw != "" {
		if snapshot.Current, err = decodeItem(raw); err != nil {
			return nil, err
		}
	}

	snapshot.ComputeStats()
	return snapshot, nil
}

// Clear drops both lanes, the dedup set and the current slot, returning the
// items that were waiting in the lanes in dispatch order. Clearing an empty
// queue is a no-op.
func (s *RedisStore) Clear(ctx context.Context, venueID string) ([]domain.QueueItem, error) {
	keys := keysFor(venueID)
	res, err := s.clearScript.Run(ctx, s.redisClient, keys.all()).Result()
	if err != nil {
		return nil, storeError("clear", err)
	}

	values, ok := res.([]interface{})
	if !ok {
		return nil, storeError("clear", errors.Errorf("unexpected reply %T", res))
	}

	raws := make([]string, 0, len(values))
	for _, v := range values {
		if raw, ok := v.(string); ok {
			raws = append(raws, raw)
		}
	}
	return decodeItems(raws)
}

func scriptReply(res interface{}) (int64, string, error) {
	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return 0, "", errors.Errorf("unexpected script reply %T", res)
	}

	code, ok := values[0].(int64)
	if !ok {
		return 0, "", errors.Errorf("unexpected script code %T", values[0])
	}
	raw, _ := values[1].(string)

	return code, raw, nil
}

func decodeItem(raw string) (*domain.QueueItem, error) {
	var item domain.QueueItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal queue item")
	}
	return &item, nil
}

func decodeItems(raws []string) ([]domain.QueueItem, error) {
	items := make([]domain.QueueItem, 0, len(raws))
	for _, raw := range raws {
		item, err := decodeItem(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func storeError(op string, err error) error {
	return errors.Wrapf(constant.ErrStore, "%s: %v", op, err)
}
