package guest

import (
	"log"
	"net/http"

	"resto_back_end/internal/cache"
	"resto_back_end/internal/models"
	"resto_back_end/internal/realtime"
	"resto_back_end/internal/services"
	"resto_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Store *store.ScyllaStore
	Hub   *realtime.Hub
}

type orderLine struct {
	DishID   int64 `json:"dishId"`
	Quantity int   `json:"quantity"`
}

type createOrdersRequest struct {
	Orders []orderLine `json:"orders"`
}

// CreateOrders crée une ligne de commande par plat demandé, chacune avec son
// snapshot figé, puis prévient le dashboard staff.
func (h *Handler) CreateOrders(c *gin.Context) {
	guestID := c.GetInt64("guest_id")
	if guestID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invité non authentifié"})
		return
	}

	var req createOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Orders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide ou commande vide"})
		return
	}

	ctx := c.Request.Context()

	guest, err := h.Store.FindGuest(ctx, guestID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invité inconnu"})
		return
	}

	projections := make([]models.OrderProjection, 0, len(req.Orders))
	for _, line := range req.Orders {
		order, snap, err := h.Store.CreateOrder(ctx, &guestID, guest.TableNumber, line.DishID, line.Quantity)
		if err != nil {
			log.Println("❌ Création commande échouée:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		projections = append(projections, models.Projection(order, snap, guest.Summary()))
	}

	cache.InvalidateGuestOrders(ctx, guestID)
	for _, p := range projections {
		h.Hub.BroadcastToManagers(ctx, realtime.EventUpdateOrder, p)
		services.IndexOrder(p)
	}

	c.JSON(http.StatusOK, gin.H{"data": projections})
}

// GetMyOrders renvoie les commandes de l'invité connecté dans l'ordre de
// création — c'est la voie de resynchronisation qui rattrape tout événement
// push manqué.
func (h *Handler) GetMyOrders(c *gin.Context) {
	guestID := c.GetInt64("guest_id")
	if guestID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invité non authentifié"})
		return
	}

	ctx := c.Request.Context()

	if orders, ok := cache.GetGuestOrders(ctx, guestID); ok {
		c.JSON(http.StatusOK, gin.H{"data": orders})
		return
	}

	orders, err := h.Store.ListOrdersForGuest(ctx, guestID)
	if err != nil {
		log.Println("❌ Erreur récupération commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	projections := make([]models.OrderProjection, 0, len(orders))
	for i := range orders {
		projections = append(projections, h.Store.Projection(ctx, &orders[i]))
	}
	services.SignProjectionImages(ctx, projections)
	cache.SetGuestOrders(ctx, guestID, projections)

	c.JSON(http.StatusOK, gin.H{"data": projections})
}
