package queue

import (
	"fmt"

	"encore/queue-gateway/internal/constant"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps every venue queue in Redis: a list per lane, a set of
// queued track ids and a scalar for the item currently playing. All writes go
// through Lua scripts so each mutation commits as one unit.
type RedisStore struct {
	redisClient redis.UniversalClient
	logger      *logrus.Logger

	enqueueScript   *redis.Script
	removeScript    *redis.Script
	setStatusScript *redis.Script
	promoteScript   *redis.Script
	clearScript     *redis.Script
}

type venueKeys struct {
	priority string
	standard string
	tracks   string
	current  string
}

// keysFor builds the key space of one venue. The braces keep every key of a
// venue in the same cluster slot so scripts may touch all of them.
func keysFor(venueID string) venueKeys {
	base := fmt.Sprintf("%s:queue:{%s}", constant.RedisKeyPrefix, venueID)
	return venueKeys{
		priority: base + ":priority",
		standard: base + ":standard",
		tracks:   base + ":tracks",
		current:  base + ":current",
	}
}

func (k venueKeys) all() []string {
	return []string{k.priority, k.standard, k.tracks, k.current}
}

// script return codes
const (
	codeOK          = 1
	codeNotFound    = 0
	codeDuplicate   = -1
	codeFull        = -2
	codeNotOwner    = -2
	codeWrongStatus = -3
)

var enqueueLua = redis.NewScript(`
	local tracks, priority, standard = KEYS[1], KEYS[2], KEYS[3]
	local track, lane, payload = ARGV[1], ARGV[2], ARGV[3]
	local max = tonumber(ARGV[4])

	if redis.call('SISMEMBER', tracks, track) == 1 then
		return {-1, 0}
	end

	local p = redis.call('LLEN', priority)
	local s = redis.call('LLEN', standard)
	if max > 0 and p + s >= max then
		return {-2, 0}
	end

	local rank
	if lane == 'priority' then
		rank = redis.call('RPUSH', priority, payload)
		redis.call('SADD', tracks, track)
		return {rank, rank}
	end

	rank = redis.call('RPUSH', standard, payload)
	redis.call('SADD', tracks, track)
	return {rank, p + rank}
`)

var removeLua = redis.NewScript(`
	local tracks = KEYS[1]
	local id, track, owner, statuses = ARGV[1], ARGV[2], ARGV[3], ARGV[4]

	for i = 2, 3 do
		local items = redis.call('LRANGE', KEYS[i], 0, -1)
		for _, raw in ipairs(items) do
			local item = cjson.decode(raw)
			if item.id == id then
				if owner ~= '' and item.requester_id ~= owner then
					return {-2, raw}
				end
				if statuses ~= '' and not string.find(' ' .. statuses .. ' ', ' ' .. item.status .. ' ', 1, true) then
					return {-3, raw}
				end
				redis.call('LREM', KEYS[i], 1, raw)
				if track == '' then
					track = item.external_track_id
				end
				redis.call('SREM', tracks, track)
				return {1, raw}
			end
		end
	end

	return {0, ''}
`)

var setStatusLua = redis.NewScript(`
	local id, from, to = ARGV[1], ARGV[2], ARGV[3]

	for i = 1, 2 do
		local items = redis.call('LRANGE', KEYS[i], 0, -1)
		for idx, raw in ipairs(items) do
			local item = cjson.decode(raw)
			if item.id == id then
				if item.status ~= from then
					return {-3, raw}
				end
				item.status = to
				local updated = cjson.encode(item)
				redis.call('LSET', KEYS[i], idx - 1, updated)
				return {1, updated}
			end
		end
	end

	return {0, ''}
`)

var promoteLua = redis.NewScript(`
	local tracks, current = KEYS[1], KEYS[4]
	local approvedOnly, playing = ARGV[1] == '1', ARGV[2]
	local finished, requireCurrent, expected = ARGV[3], ARGV[4] == '1', ARGV[5]

	local previous = redis.call('GET', current)
	if previous then
		local prev = cjson.decode(previous)
		if expected ~= '' and prev.id ~= expected then
			return {-3, '', ''}
		end
		redis.call('SREM', tracks, prev.external_track_id)
		redis.call('DEL', current)
		prev.status = finished
		previous = cjson.encode(prev)
	elseif requireCurrent then
		return {-3, '', ''}
	else
		previous = ''
	end

	for i = 2, 3 do
		local items = redis.call('LRANGE', KEYS[i], 0, -1)
		for _, raw in ipairs(items) do
			local item = cjson.decode(raw)
			if not approvedOnly or item.status == 'approved' then
				redis.call('LREM', KEYS[i], 1, raw)
				item.status = playing
				local promoted = cjson.encode(item)
				redis.call('SET', current, promoted)
				return {1, previous, promoted}
			end
		end
	end

	return {1, previous, ''}
`)

var clearLua = redis.NewScript(`
	local drained = redis.call('LRANGE', KEYS[1], 0, -1)
	for _, raw in ipairs(redis.call('LRANGE', KEYS[2], 0, -1)) do
		table.insert(drained, raw)
	end
	redis.call('DEL', KEYS[1], KEYS[2], KEYS[3], KEYS[4])
	return drained
`)

func NewRedisStore(redisClient redis.UniversalClient, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		redisClient:     redisClient,
		logger:          logger,
		enqueueScript:   enqueueLua,
		removeScript:    removeLua,
		setStatusScript: setStatusLua,
		promoteScript:   promoteLua,
		clearScript:     clearLua,
	}
}
