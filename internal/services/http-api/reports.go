package httpapi

import (
	"net/http"

	"github.com/NordCoder/Smsgate/internal/domain/delivery"
	"github.com/NordCoder/Smsgate/internal/domain/subscriber"
	"github.com/NordCoder/Smsgate/internal/obs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

type Reports struct {
	Deliveries delivery.Repo
	Groups     subscriber.Repo
}

type deliveriesQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

func (rp *Reports) register(g *gin.RouterGroup, log *zap.Logger) {
	g.GET("/deliveries", func(c *gin.Context) {
		var q deliveriesQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit := defaultDeliveryLimit
		if q.Limit > 0 {
			limit = min(q.Limit, maxDeliveryLimit)
		}
		entries, err := rp.Deliveries.ListRecent(c.Request.Context(), limit)
		if err != nil {
			obs.WithTrace(c.Request.Context(), log).Error("list deliveries", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if entries == nil {
			entries = []*delivery.Entry{}
		}
		c.JSON(http.StatusOK, gin.H{"items": entries})
	})

	g.GET("/subscriber-groups", func(c *gin.Context) {
		groups, err := rp.Groups.ListGroups(c.Request.Context())
		if err != nil {
			obs.WithTrace(c.Request.Context(), log).Error("list groups", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if groups == nil {
			groups = []*subscriber.Group{}
		}
		c.JSON(http.StatusOK, gin.H{"items": groups})
	})
}
