package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Niyati251208/sports-performance-analyzer/internal/storage"
	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
)

var _ storage.Storage = (*CacheService)(nil)

// CacheService wraps storage with Redis caching
type CacheService struct {
	storage storage.Storage
	redis   *redis.Client
}

// NewCacheService creates a new cache service
func NewCacheService(storage storage.Storage, redisClient *redis.Client) *CacheService {
	return &CacheService{
		storage: storage,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	UserUploadsKey = "uploads:email:%s" // uploads:email:email
	UploadKey      = "uploads:id:%d"    // uploads:id:id

	// Bumped on every write that invalidates the matching entry. Kept outside
	// uploads:* so ClearCache never resets them.
	UserUploadsVersionKey = "upload_versions:email:%s"
	UploadVersionKey      = "upload_versions:id:%d"
)

// Cache durations
const (
	UserUploadsCacheDuration = 45 * time.Second
	UploadCacheDuration      = 10 * time.Minute // records never change, only disappear
	versionDuration          = 24 * time.Hour
)

// setIfUnchanged writes KEYS[2] only while the version at KEYS[1] still equals ARGV[1].
var setIfUnchanged = redis.NewScript(`
	local current = redis.call('GET', KEYS[1]) or ''
	if current ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// version returns the current version of an entry. ok is false when Redis cannot
// be read, in which case the caller must not fill the cache.
func (c *CacheService) version(ctx context.Context, versionKey string) (string, bool) {
	v, err := c.redis.Get(ctx, versionKey).Result()
	if err == redis.Nil {
		return "", true
	}
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *CacheService) fill(ctx context.Context, versionKey, version, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	err = setIfUnchanged.Run(ctx, c.redis, []string{versionKey, key}, version, data, ttl.Milliseconds()).Err()
	if err != nil && err != redis.Nil {
		slog.Warn("Failed to fill upload cache", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// invalidate bumps the version first, then drops the entry.
func (c *CacheService) invalidate(ctx context.Context, versionKey, key string) error {
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionDuration)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

// ListUploadsByEmail returns the cached upload list or fetches from DB
func (c *CacheService) ListUploadsByEmail(ctx context.Context, email string) ([]uploads.UploadRecord, error) {
	key := fmt.Sprintf(UserUploadsKey, email)

	// Try cache first
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var records []uploads.UploadRecord
		if err := json.Unmarshal([]byte(cached), &records); err == nil {
			return records, nil
		}
	}

	// Cache miss - read the version before the database so a concurrent write wins
	versionKey := fmt.Sprintf(UserUploadsVersionKey, email)
	version, ok := c.version(ctx, versionKey)

	records, err := c.storage.ListUploadsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if ok {
		c.fill(ctx, versionKey, version, key, records, UserUploadsCacheDuration)
	}
	return records, nil
}

// FindUploadByID returns the cached record or fetches from DB
func (c *CacheService) FindUploadByID(ctx context.Context, id int64) (uploads.UploadRecord, error) {
	key := fmt.Sprintf(UploadKey, id)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var rec uploads.UploadRecord
		if err := json.Unmarshal([]byte(cached), &rec); err == nil {
			return rec, nil
		}
	}

	versionKey := fmt.Sprintf(UploadVersionKey, id)
	version, ok := c.version(ctx, versionKey)

	rec, err := c.storage.FindUploadByID(ctx, id)
	if err != nil {
		return rec, err
	}

	if ok {
		c.fill(ctx, versionKey, version, key, rec, UploadCacheDuration)
	}
	return rec, nil
}

func (c *CacheService) InsertUpload(ctx context.Context, rec uploads.UploadRecord) (uploads.UploadRecord, error) {
	saved, err := c.storage.InsertUpload(ctx, rec)
	if err != nil {
		return saved, err
	}

	c.invalidateOwner(ctx, saved.UserEmail)
	return saved, nil
}

func (c *CacheService) DeleteUploadByID(ctx context.Context, id int64) (bool, error) {
	// Look the owner up first, the row is gone afterwards.
	rec, findErr := c.storage.FindUploadByID(ctx, id)

	deleted, err := c.storage.DeleteUploadByID(ctx, id)
	if err != nil {
		return false, err
	}

	if err := c.invalidate(ctx, fmt.Sprintf(UploadVersionKey, id), fmt.Sprintf(UploadKey, id)); err != nil {
		slog.Warn("Failed to invalidate upload cache", slog.Int64("id", id), slog.String("error", err.Error()))
	}
	if findErr == nil {
		c.invalidateOwner(ctx, rec.UserEmail)
	}
	return deleted, nil
}

// InvalidateUserUploads clears the upload list cached for email
func (c *CacheService) InvalidateUserUploads(ctx context.Context, email string) {
	err := c.invalidate(ctx, fmt.Sprintf(UserUploadsVersionKey, email), fmt.Sprintf(UserUploadsKey, email))
	if err != nil {
		slog.Warn("Failed to invalidate upload cache", slog.String("email", email), slog.String("error", err.Error()))
	}
}

func (c *CacheService) invalidateOwner(ctx context.Context, email *string) {
	if email == nil || *email == "" {
		return
	}
	c.InvalidateUserUploads(ctx, *email)
}

func (c *CacheService) ListAllUploads(ctx context.Context) ([]uploads.UploadRecord, error) {
	return c.storage.ListAllUploads(ctx)
}

func (c *CacheService) Close() error {
	return c.storage.Close()
}
