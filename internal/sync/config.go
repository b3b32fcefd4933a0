package sync

import "time"

const (
	defaultEventType  = "StripeEnvSync"
	defaultLockPrefix = "stripe-env-sync"
	defaultLockTTL    = 5 * time.Minute
)

type lockConfig struct {
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
}

type eventsConfig struct {
	Enabled   bool
	AccountId int
	EventType string
}
