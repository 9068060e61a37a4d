package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fronut/Picture-management-website/internal/search"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// generationKey — счётчик поколений пространства ключей поиска.
// Инвалидация всего кэша — один атомарный INCR вместо сканирования
// и блокировки ключей
const generationKey = "search:generation"

// RedisSearchCache кэширует страницы результатов поиска в Redis.
// Недоступность Redis никогда не превращается в ошибку для
// вызывающего: чтение деградирует в промах, запись и инвалидация
// логируются и пропускаются
type RedisSearchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSearchCache создаёт кэш поверх существующего клиента Redis
func NewRedisSearchCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisSearchCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSearchCache{client: client, ttl: ttl, logger: logger}
}

// BuildKey строит детерминированный ключ кэша: поколение, идентичность
// запрашивающего и SHA-256 от JSON-сериализации критериев. Равные
// критерии дают равный ключ и между вызовами, и между перезапусками
// процесса
func BuildKey(generation int64, requester *uuid.UUID, criteria search.Criteria) string {
	who := "anon"
	if requester != nil {
		who = requester.String()
	}

	payload, err := json.Marshal(criteria)
	if err != nil {
		// Criteria состоит из сериализуемых полей; сюда попасть нельзя,
		// но пустой дайджест хуже честного отката на строку
		payload = []byte(fmt.Sprintf("%+v", criteria))
	}
	digest := sha256.Sum256(payload)
	return fmt.Sprintf("search:g%d:u:%s:%s", generation, who, hex.EncodeToString(digest[:]))
}

// GetSearchPage возвращает закэшированную страницу; false при промахе
// или недоступности Redis
func (c *RedisSearchCache) GetSearchPage(ctx context.Context, requester *uuid.UUID, criteria search.Criteria) (*search.PageResult, bool) {
	key := c.keyFor(ctx, requester, criteria)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("search cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var page search.PageResult
	if err := json.Unmarshal(raw, &page); err != nil {
		c.logger.Warn("search cache entry is corrupted", "key", key, "error", err)
		return nil, false
	}
	return &page, true
}

// SetSearchPage сохраняет страницу с ограниченным TTL
func (c *RedisSearchCache) SetSearchPage(ctx context.Context, requester *uuid.UUID, criteria search.Criteria, page *search.PageResult) {
	key := c.keyFor(ctx, requester, criteria)

	raw, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("failed to marshal search page for cache", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", "key", key, "error", err)
	}
}

// EvictAll инвалидирует всё пространство ключей поиска одним
// атомарным инкрементом поколения. Старые записи истекают по TTL
func (c *RedisSearchCache) EvictAll(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warn("search cache eviction failed", "error", err)
	}
}

func (c *RedisSearchCache) keyFor(ctx context.Context, requester *uuid.UUID, criteria search.Criteria) string {
	generation, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && err != redis.Nil {
		c.logger.Warn("failed to read search cache generation", "error", err)
	}
	return BuildKey(generation, requester, criteria)
}
