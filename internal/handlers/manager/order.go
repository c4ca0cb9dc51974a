package manager

import (
	"errors"
	"log"
	"net/http"
	"strconv"

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

type updateOrderRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus : édition manuelle par le staff (servir, annuler…). La
// transition passe par le même CAS que la voie webhook — pas d'état
// intermédiaire corrompu possible entre les deux.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut manquant"})
		return
	}

	ctx := c.Request.Context()

	var handlerID *string
	if uid := c.GetString("user_id"); uid != "" {
		handlerID = &uid
	}

	updated, err := h.Store.UpdateStatus(ctx, id, req.Status, handlerID)
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	case errors.Is(err, store.ErrAlreadyProcessed):
		// no-op idempotent : on renvoie l'état courant sans ré-émettre
		c.JSON(http.StatusOK, gin.H{"data": h.Store.Projection(ctx, updated)})
		return
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Println("❌ Mise à jour statut échouée:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de mise à jour"})
		return
	}

	projection := h.Store.Projection(ctx, updated)

	if updated.GuestID != nil {
		cache.InvalidateGuestOrders(ctx, *updated.GuestID)
	}
	h.Hub.BroadcastToManagers(ctx, realtime.EventUpdateOrder, projection)
	if updated.GuestID != nil {
		h.Hub.NotifyGuest(ctx, *updated.GuestID, realtime.EventUpdateOrder, projection)
	}
	services.IndexOrder(projection)

	c.JSON(http.StatusOK, gin.H{"data": projection})
}

// SearchOrders : recherche plein texte du dashboard (plat, statut, invité).
func (h *Handler) SearchOrders(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q manquant"})
		return
	}

	results, err := services.SearchOrders(c.Request.Context(), query)
	if err != nil {
		log.Println("❌ Recherche Elastic échouée:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recherche indisponible"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// GetOrder : consultation directe d'une commande par le staff.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	order, err := h.Store.FindOrder(c.Request.Context(), id)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de lecture"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.Store.Projection(c.Request.Context(), order)})
}
