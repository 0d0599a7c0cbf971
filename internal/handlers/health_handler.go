package handlers

import (
	"net/http"

	"ambudispatch/internal/utils"
	"ambudispatch/pkg/cache"
	"ambudispatch/pkg/database"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	db    *database.MongoDB
	cache *cache.RedisCache
}

func NewHealthHandler(db *database.MongoDB, cache *cache.RedisCache) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	checks := map[string]string{
		"mongodb": "ok",
		"redis":   "ok",
	}
	healthy := true

	if err := h.db.Ping(); err != nil {
		checks["mongodb"] = err.Error()
		healthy = false
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	} else {
		checks["redis"] = "disabled"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"checks": checks,
		})
		return
	}

	utils.SuccessResponse(c, "Service healthy", gin.H{
		"app":    utils.AppName,
		"checks": checks,
	})
}
