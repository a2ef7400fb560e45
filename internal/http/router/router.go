package router

import (
	"net/http"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Niyati251208/sports-performance-analyzer/docs" // registers the swagger spec
	"github.com/Niyati251208/sports-performance-analyzer/internal/blob"
	"github.com/Niyati251208/sports-performance-analyzer/internal/cache"
	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
	"github.com/Niyati251208/sports-performance-analyzer/internal/http/handlers/auth"
	"github.com/Niyati251208/sports-performance-analyzer/internal/http/handlers/uploads"
	"github.com/Niyati251208/sports-performance-analyzer/internal/http/handlers/websocket"
	"github.com/Niyati251208/sports-performance-analyzer/internal/http/middleware"
	"github.com/Niyati251208/sports-performance-analyzer/internal/metrics"
	wsHub "github.com/Niyati251208/sports-performance-analyzer/internal/websocket"
)

type Deps struct {
	Config  *config.Config
	Service uploads.Service
	Blobs   blob.Store
	Hub     *wsHub.Hub
	Redis   *redis.Client // nil disables rate limiting and the cache admin routes
	Metrics *metrics.Metrics
}

func New(d Deps) *http.ServeMux {
	cfg := d.Config
	router := http.NewServeMux()

	// front-end
	publicDir := cfg.HTTPServer.PublicDir
	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(publicDir, "login.html"))
	})
	router.Handle("GET /", http.FileServer(http.Dir(publicDir)))

	// stored videos, when they live on local disk
	if fs, ok := d.Blobs.(*blob.FS); ok {
		router.Handle("GET "+fs.PublicPrefix(), fs.Handler())
	}

	uploadHandlers := uploads.NewUploadHandlers(d.Service, cfg.Media.MaxFileSize)
	rateLimits := middleware.NewRateLimitConfig(d.Redis, cfg.RateLimit.UploadsPerMinute)
	identity := middleware.IdentityMiddleware(cfg.JWTSecret)

	router.HandleFunc("POST /login", auth.Login(cfg.JWTSecret, cfg.TokenTTL))
	router.Handle("POST /upload/{sport}", identity(rateLimits.RateLimitedHandler(middleware.ActionUpload, uploadHandlers.Upload())))
	router.HandleFunc("POST /api/uploads", uploadHandlers.ListUploads())
	router.HandleFunc("POST /api/delete-upload", uploadHandlers.DeleteUpload())

	if d.Hub != nil {
		router.HandleFunc("GET /ws", websocket.WebSocketHandler(d.Hub, cfg.JWTSecret))
	}

	if d.Metrics != nil {
		router.Handle("GET /metrics", d.Metrics.Handler())
	}
	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	if d.Redis != nil {
		router.HandleFunc("GET /admin/cache/stats", cache.GetCacheStats(d.Redis))
		router.HandleFunc("POST /admin/cache/clear", cache.ClearCache(d.Redis))
	}

	return router
}
