package cache

import (
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/response"
)

// CacheStats represents cache performance statistics
type CacheStats struct {
	RedisConnected bool     `json:"redis_connected"`
	CacheKeys      []string `json:"cache_keys_sample"`
	UploadKeyCount int      `json:"upload_keys"`
	KeyCount       int      `json:"total_keys"`
}

// GetCacheStats returns cache performance statistics
// @Summary      Cache statistics
// @Tags         admin
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /admin/cache/stats [get]
func GetCacheStats(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		stats := CacheStats{RedisConnected: true}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			stats.RedisConnected = false
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
			return
		}

		keys := redisClient.Keys(ctx, "uploads:*")
		if keys.Err() == nil {
			stats.UploadKeyCount = len(keys.Val())
			stats.CacheKeys = keys.Val()
			if len(stats.CacheKeys) > 10 {
				stats.CacheKeys = stats.CacheKeys[:10] // Show only first 10
			}
		}

		dbSize := redisClient.DBSize(ctx)
		if dbSize.Err() == nil {
			stats.KeyCount = int(dbSize.Val())
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
	}
}

// ClearCache endpoint for administrative purposes
// @Summary      Clear cached upload data
// @Tags         admin
// @Produce      json
// @Param        type  query  string  false  "lists, records or all"
// @Success      200  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /admin/cache/clear [post]
func ClearCache(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var pattern string
		switch r.URL.Query().Get("type") {
		case "records":
			pattern = "uploads:id:*"
		case "all":
			pattern = "uploads:*"
		default:
			pattern = "uploads:email:*"
		}

		keys := redisClient.Keys(ctx, pattern)
		if keys.Err() != nil {
			slog.Error("Failed to list cache keys", slog.String("error", keys.Err().Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError())
			return
		}

		if len(keys.Val()) == 0 {
			result := map[string]interface{}{
				"pattern":      pattern,
				"deleted_keys": 0,
			}
			response.WriteJSON(w, http.StatusOK, response.RequestOK("No cache keys to clear", result))
			return
		}

		deleted := redisClient.Del(ctx, keys.Val()...)
		if deleted.Err() != nil {
			slog.Error("Failed to clear cache keys", slog.String("error", deleted.Err().Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError())
			return
		}

		result := map[string]interface{}{
			"pattern":      pattern,
			"deleted_keys": deleted.Val(),
			"keys_sample":  keys.Val()[:min(len(keys.Val()), 5)],
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache cleared successfully", result))
	}
}
