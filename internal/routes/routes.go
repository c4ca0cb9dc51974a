package routes

import (
	"resto_back_end/internal/handlers"
	"resto_back_end/internal/handlers/guest"
	"resto_back_end/internal/handlers/manager"
	"resto_back_end/internal/middleware"
	"resto_back_end/internal/realtime"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, pay *handlers.PaymentHandler, g *guest.Handler, m *manager.Handler, ws *realtime.Server) {
	// Prestataire de paiement (pas d'auth : le webhook s'authentifie par
	// signature, la redirection est non fiable par design)
	r.POST("/create-embedded-payment-link", middleware.PaymentLinkRateLimit(), pay.CreateEmbeddedPaymentLink)
	r.POST("/handle-payment-redirect", pay.HandlePaymentRedirect)
	r.POST("/receive-hook", pay.ReceiveHook)

	auth := r.Group("", middleware.APIRateLimit(), middleware.AuthRequired())

	// Temps réel (le rôle du token décide du groupe)
	auth.GET("/ws", ws.Serve)

	// Invités
	auth.POST("/guest/orders", g.CreateOrders)
	auth.GET("/guest/orders", g.GetMyOrders)

	// Staff
	staff := auth.Group("", middleware.ManagerRequired())
	staff.PUT("/orders/:id", m.UpdateOrderStatus)
	staff.GET("/orders/:id", m.GetOrder)
	staff.GET("/manager/orders/search", m.SearchOrders)
}
