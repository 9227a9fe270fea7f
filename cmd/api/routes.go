package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shuttle-global/twilio-demo-app/internal/ivr"
	"github.com/shuttle-global/twilio-demo-app/internal/linkpage"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h *ivr.Handlers, page *linkpage.PageHandler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The landing page lives at /demo/link/:instance_id/:nonce, which shares
	// its shape with the tenant prefix below; the router cannot hold both a
	// static "link" segment and the :connector wildcard, so the landing page
	// is dispatched off the connector value.
	r.GET("/demo/:connector/:instance_id/:instance_secret", func(c *gin.Context) {
		if c.Param("connector") != "link" {
			c.Status(http.StatusNotFound)
			return
		}
		status, body := page.Render(c.Param("instance_id"), c.Param("instance_secret"), c.Query("t"))
		c.Data(status, "text/html; charset=utf-8", []byte(body))
	})

	// Telephony webhook surface. The instance secret rides in the path, so
	// these routes carry their own credential; there is no separate auth.
	h.Register(r.Group("/demo/:connector/:instance_id/:instance_secret"))

	r.NoRoute(func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
}
