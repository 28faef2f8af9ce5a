package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"digi-shop/internal/repo/persistent"
	"digi-shop/pkg/cache"
	"digi-shop/pkg/config"
	"digi-shop/pkg/jwt"
	"digi-shop/pkg/logger"
	"digi-shop/pkg/queue"
)

// Ledger is the slice of the store the ops API reads from.
type Ledger interface {
	Stats(ctx context.Context) (*persistent.Stats, error)
	Ping(ctx context.Context) error
}

type OpsHandler struct {
	ledger     Ledger
	cache      *cache.Manager
	queue      *queue.Client
	jwtService *jwt.Service
	cfg        *config.Config
	logger     *logger.Logger
}

func NewOpsHandler(ledger Ledger, cacheManager *cache.Manager, queueClient *queue.Client, jwtService *jwt.Service, cfg *config.Config, log *logger.Logger) *OpsHandler {
	return &OpsHandler{
		ledger:     ledger,
		cache:      cacheManager,
		queue:      queueClient,
		jwtService: jwtService,
		cfg:        cfg,
		logger:     log,
	}
}

func (h *OpsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok", "cache": "ok"}

	if err := h.ledger.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, checks)
}

type AuthRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// IssueToken exchanges the shared ops secret for a short-lived JWT.
func (h *OpsHandler) IssueToken(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "telegram_id and secret are required"})
		return
	}

	if req.Secret != h.cfg.JWTSecret || req.TelegramID != h.cfg.OwnerID {
		h.logger.Warn("Rejected ops token request for id %d", req.TelegramID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.jwtService.GenerateToken(fmt.Sprintf("%d", req.TelegramID), "owner")
	if err != nil {
		h.logger.Error("Token generation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *OpsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	const key = "stats:summary"
	if h.cache != nil {
		var cached persistent.Stats
		if hit, err := h.cache.Get(ctx, key, &cached); err == nil && hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	stats, err := h.ledger.Stats(ctx)
	if err != nil {
		h.logger.Error("Stats query: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, stats, time.Minute); err != nil {
			h.logger.Warn("Failed to cache stats: %v", err)
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *OpsHandler) GetQueueDepth(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusOK, gin.H{"broadcast_queue": 0, "enabled": false})
		return
	}
	depth, err := h.queue.QueueLength()
	if err != nil {
		h.logger.Error("Queue length: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"broadcast_queue": depth, "enabled": true})
}

// Metrics serves the counters in Prometheus text exposition format.
func (h *OpsHandler) Metrics(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "# stats unavailable\n")
		return
	}

	var out string
	out += "# TYPE shop_users_total gauge\n"
	out += fmt.Sprintf("shop_users_total %d\n", stats.Users)
	out += "# TYPE shop_goods_total gauge\n"
	out += fmt.Sprintf("shop_goods_total %d\n", stats.Goods)
	out += "# TYPE shop_stock_units gauge\n"
	out += fmt.Sprintf("shop_stock_units %d\n", stats.StockUnits)
	out += "# TYPE shop_items_sold_total counter\n"
	out += fmt.Sprintf("shop_items_sold_total %d\n", stats.Sold)
	out += "# TYPE shop_revenue_total counter\n"
	out += fmt.Sprintf("shop_revenue_total %d\n", stats.Revenue)
	out += "# TYPE shop_topup_total counter\n"
	out += fmt.Sprintf("shop_topup_total %d\n", stats.TopUpTotal)

	c.Data(http.StatusOK, "text/plain; version=0.0.4", []byte(out))
}
