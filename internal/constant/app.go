package constant

import (
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	RedisKeyPrefix   = "jukebox"
	RedisVenuePrefix = "jukebox:venue:"

	KafkaProducerAcks  = kafka.RequireAll
	KafkaWriteTimeout  = 5 * time.Second
	KafkaWorkerCount   = 4
	KafkaWorkerBufSize = 10000 // capacity of in-memory channel; tune by memory and expected bursts
	KafkaWriteRetries  = 3
	KafkaRetryBackoff  = 500 * time.Millisecond
	DBTxTimeout        = 2 * time.Second // keep transactions short

	AuditBatchSize     = 100
	AuditFlushInterval = 1 * time.Second
	DlqReplayBatchSize = 200
)

// gin context keys set by the auth middleware
const (
	UserIdKey   = "user_id"
	UserNameKey = "user_name"
	RoleKey     = "role"

	RoleModerator = "moderator"
)

const (
	HeaderUserId             = "X-Auth-User-Id"
	HeaderUserName           = "X-Auth-User-Name"
	HeaderRole               = "X-Auth-Role"
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
)
