package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/infrastructure/metrics"
)

// NewRouter builds the gin engine with every ledger route under /api/v1
func NewRouter(h *Handler, collector *metrics.Collector, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger))
	if collector != nil {
		r.Use(MetricsMiddleware(collector))
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if err := h.svc.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		boms := v1.Group("/boms")
		{
			boms.GET("", h.ListBOMs)
			boms.POST("", h.CreateBOM)
			boms.GET("/:id", h.GetBOM)
			boms.PUT("/:id", h.UpdateBOM)
			boms.DELETE("/:id", h.DeleteBOM)
			boms.GET("/:id/versions", h.ListVersions)
			boms.GET("/:id/effective-version", h.GetEffectiveVersion)
			boms.GET("/:id/tree", h.BOMTree)
		}

		versions := v1.Group("/versions")
		{
			versions.POST("", h.AddVersion)
			versions.GET("/:id", h.GetVersion)
			versions.PUT("/:id", h.UpdateVersion)
			versions.DELETE("/:id", h.DeleteVersion)
			versions.POST("/:id/approve", h.ApproveVersion)
			versions.POST("/:id/reject", h.RejectVersion)
			versions.POST("/:id/resubmit", h.ResubmitVersion)
			versions.POST("/:id/explode", h.Explode)
		}
		v1.GET("/version-diff", h.DiffVersions)

		orders := v1.Group("/orders")
		{
			orders.GET("", h.ListOrders)
			orders.POST("", h.CreateOrder)
			orders.GET("/:id", h.GetOrder)
			orders.DELETE("/:id", h.DeleteOrder)
			orders.POST("/:id/issue", h.GenerateIssue)
			orders.POST("/:id/finish", h.FinishOrder)
		}

		issues := v1.Group("/issues")
		{
			issues.GET("", h.ListIssues)
			issues.GET("/:id", h.GetIssue)
			issues.POST("/:id/post", h.PostIssue)
			issues.POST("/:id/cancel", h.CancelIssue)
		}

		items := v1.Group("/items")
		{
			items.GET("/:type", h.ListItems)
			items.POST("/:type", h.RegisterItem)
			items.GET("/:type/:id/balance", h.Balance)
			items.GET("/:type/:id/history", h.History)
			items.POST("/:type/:id/merge-aliases", h.MergeAliases)
		}

		v1.POST("/movements", h.RecordMovement)
		v1.POST("/aliases", h.RegisterAlias)
		v1.POST("/plan", h.PlanProduction)
		v1.GET("/usage", h.MaterialUsage)

		maintenance := v1.Group("/maintenance")
		{
			maintenance.GET("/reconcile", h.Reconcile)
			maintenance.POST("/reconcile", h.Reconcile)
			maintenance.POST("/repair-issues", h.RepairIssues)
		}
	}

	return r
}
