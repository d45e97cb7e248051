package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type AppEnv string

const (
	ProductionEnv AppEnv = "production"
	StageEnv      AppEnv = "stage"
	DevelopEnv    AppEnv = "develop"
	LocalEnv      AppEnv = "local"
	TestEnv       AppEnv = "test"
)

const (
	LedgerModeHTTP = "http"
	LedgerModeStub = "stub"

	RelayRedis = "redis"
	RelayLocal = "local"
)

type (
	Config struct {
		AppEnv      AppEnv       `env:"APP_ENV" envDefault:"local"`
		LogLevel    logrus.Level `env:"LOG_LEVEL" envDefault:"info"`
		LogFormat   string       `env:"LOG_FORMAT" envDefault:"text"`
		HTTP        HTTP         `envPrefix:"HTTP_"`
		Database    Database
		Kafka       Kafka     `envPrefix:"KAFKA_"`
		Ledger      Ledger    `envPrefix:"LEDGER_"`
		Queue       Queue     `envPrefix:"QUEUE_"`
		Broadcast   Broadcast `envPrefix:"BROADCAST_"`
		RateLimit   RateLimit `envPrefix:"RATE_LIMIT_"`
		WorkerCount int       `env:"WORKER_COUNT" envDefault:"4"`
	}

	HTTP struct {
		Port            int           `env:"PORT" envDefault:"8080"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Database struct {
		Postgres   Postgres   `envPrefix:"POSTGRES_"`
		Redis      Redis      `envPrefix:"REDIS_"`
		ClickHouse ClickHouse `envPrefix:"CLICKHOUSE_"`
	}

	Postgres struct {
		Host     string `env:"HOST" envDefault:"localhost"`
		Port     int    `env:"PORT" envDefault:"5432"`
		Username string `env:"USERNAME" envDefault:"postgres"`
		Password string `env:"PASSWORD"`
		Database string `env:"DATABASE" envDefault:"jukebox"`
	}

	Redis struct {
		Host     string `env:"HOST" envDefault:"localhost"`
		Port     int    `env:"PORT" envDefault:"6379"`
		Password string `env:"PASSWORD"`
		Database int    `env:"DATABASE" envDefault:"0"`
	}

	ClickHouse struct {
		Host     string `env:"HOST" envDefault:"localhost"`
		Port     int    `env:"PORT" envDefault:"9000"`
		Username string `env:"USERNAME" envDefault:"default"`
		Password string `env:"PASSWORD"`
		Database string `env:"DATABASE" envDefault:"jukebox"`
	}

	Kafka struct {
		Host    string `env:"HOST" envDefault:"localhost"`
		Port    int    `env:"PORT" envDefault:"9092"`
		Topic   string `env:"TOPIC" envDefault:"jukebox.queue.events"`
		GroupID string `env:"GROUP_ID" envDefault:"jukebox-audit"`
	}

	// Ledger points at the external points ledger. Mode "stub" swaps in the
	// in-memory ledger for local runs.
	Ledger struct {
		Mode               string        `env:"MODE" envDefault:"http"`
		BaseURL            string        `env:"BASE_URL" envDefault:"http://localhost:8090"`
		Timeout            time.Duration `env:"TIMEOUT" envDefault:"3s"`
		ReconcileTimeout   time.Duration `env:"RECONCILE_TIMEOUT" envDefault:"5s"`
		StubInitialBalance int64         `env:"STUB_INITIAL_BALANCE" envDefault:"100"`
	}

	Queue struct {
		MaxLength       int           `env:"MAX_LENGTH" envDefault:"100"`
		StandardCost    int64         `env:"STANDARD_COST" envDefault:"10"`
		PriorityCost    int64         `env:"PRIORITY_COST" envDefault:"25"`
		VenueCacheTTL   time.Duration `env:"VENUE_CACHE_TTL" envDefault:"5m"`
		HistoryPageSize int           `env:"HISTORY_PAGE_SIZE" envDefault:"20"`
	}

	Broadcast struct {
		Relay         string        `env:"RELAY" envDefault:"redis"`
		ChannelPrefix string        `env:"CHANNEL_PREFIX" envDefault:"jukebox:events"`
		WriteTimeout  time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
		PingInterval  time.Duration `env:"PING_INTERVAL" envDefault:"30s"`
		SendBuffer    int           `env:"SEND_BUFFER" envDefault:"64"`
	}

	RateLimit struct {
		RequestsPerSecond float64 `env:"RPS" envDefault:"2"`
		Burst             int     `env:"BURST" envDefault:"5"`
	}
)
