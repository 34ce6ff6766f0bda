package utils

import (
	"os"
	"strconv"
	"time"
)

type ServerConfig struct {
	Addr     string
	LogMode  string
	CacheTTL time.Duration
	// RedisAddr selects the redis cache backend when non-empty;
	// otherwise the in-process store is used.
	RedisAddr string
}

type WorkerConfig struct {
	Concurrency int
	PollEvery   time.Duration
	// HeartbeatSpec is the fixed cadence for the scheduler's own heartbeat.
	HeartbeatSpec string
	// HeartbeatExtraSpec is an optional operator-supplied cron spec
	// (interval or wall-clock), e.g. "@every 45s" or "30 9 * * *".
	HeartbeatExtraSpec string
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("CATALOGHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	mode := os.Getenv("CATALOGHUB_LOG_MODE")
	if mode == "" {
		mode = "dev"
	}

	ttl := 60 * time.Second
	if s := os.Getenv("CATALOGHUB_CACHE_TTL_SECONDS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}

	return ServerConfig{
		Addr:      addr,
		LogMode:   mode,
		CacheTTL:  ttl,
		RedisAddr: os.Getenv("CATALOGHUB_REDIS_ADDR"),
	}
}

func LoadWorkerConfig() WorkerConfig {
	concurrency := 4
	if s := os.Getenv("CATALOGHUB_WORKER_CONCURRENCY"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			concurrency = n
		}
	}

	spec := os.Getenv("CATALOGHUB_HEARTBEAT_SPEC")
	if spec == "" {
		spec = "@every 3m"
	}

	return WorkerConfig{
		Concurrency:        concurrency,
		PollEvery:          time.Second,
		HeartbeatSpec:      spec,
		HeartbeatExtraSpec: os.Getenv("CATALOGHUB_HEARTBEAT_EXTRA_SPEC"),
	}
}
