package traveltime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paidan/paidan/pkg/logger"
	"github.com/paidan/paidan/pkg/model"
)

// 缓存键前缀与默认过期时间
const (
	cacheKeyPrefix  = "paidan:travel:"
	defaultCacheTTL = 15 * time.Minute
)

// Cache 基于 Redis 的行驶时间缓存
// 指针为 nil 时所有操作都是空操作，调用方无需判空
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache 创建缓存
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get 查询缓存的估算值
func (c *Cache) Get(ctx context.Context, from, to model.Location) (Estimate, bool) {
	if c == nil || c.client == nil {
		return Estimate{}, false
	}

	raw, err := c.client.Get(ctx, cacheKey(from, to)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug().Err(err).Msg("行驶时间缓存读取失败")
		}
		return Estimate{}, false
	}

	var est Estimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return Estimate{}, false
	}
	return est, true
}

// Set 写入估算值，写入失败只记日志不报错
func (c *Cache) Set(ctx context.Context, from, to model.Location, est Estimate) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(est)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(from, to), raw, c.ttl).Err(); err != nil {
		logger.Debug().Err(err).Msg("行驶时间缓存写入失败")
	}
}

func cacheKey(from, to model.Location) string {
	return fmt.Sprintf("%s%s|%s", cacheKeyPrefix, from.Key(), to.Key())
}
