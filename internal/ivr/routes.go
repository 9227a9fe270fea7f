package ivr

import "github.com/gin-gonic/gin"

// Register mounts every call state under the tenant prefix group
// (/demo/:connector/:instance_id/:instance_secret).
func (h *Handlers) Register(g *gin.RouterGroup) {
	g.Use(h.CallContextMiddleware())

	g.GET("/start", h.Start)
	g.POST("/start", h.Start)
	g.POST("/main_menu", h.MainMenu)
	g.POST("/new_payment", h.NewPayment)
	g.POST("/payment_response", h.PaymentResponse)
	g.POST("/repeat_payment", h.RepeatPayment)
	g.POST("/payment_link", h.PaymentLink)
	g.POST("/payment_link/:link/wait", h.PaymentLinkWait)
	g.POST("/payment/:payment_id", h.PaymentView)
	g.POST("/payment/:payment_id/payment_menu", h.PaymentMenu)
	g.POST("/payment/:payment_id/payment_menu_response", h.PaymentMenuResponse)
	g.POST("/payment_method/:payment_method_id", h.PaymentMethodView)
	g.POST("/payment_method/:payment_method_id/delete", h.PaymentMethodDelete)
}
