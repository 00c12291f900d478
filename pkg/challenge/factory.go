package challenge

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreConfig contains configuration for creating a challenge store
type StoreConfig struct {
	// Client is required for redis stores
	Client *redis.Client
	TTL    time.Duration
}

// NewStore creates a challenge store based on the store type
func NewStore(storeType string, config StoreConfig) (Store, error) {
	switch storeType {
	case "redis":
		if config.Client == nil {
			return nil, fmt.Errorf("client required for redis store")
		}
		return NewRedisStore(config.Client, config.TTL), nil
	case "memory", "inmem":
		return NewMemoryStore(WithMemoryTTL(config.TTL)), nil
	default:
		return nil, fmt.Errorf("unsupported challenge store type: %s (supported: redis, memory)", storeType)
	}
}
