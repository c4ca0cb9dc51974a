package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resto_back_end/internal/database"
	"resto_back_end/internal/models"
)

const GuestOrdersTTL = 2 * time.Minute

func guestOrdersKey(guestID int64) string {
	return fmt.Sprintf("guest_orders:%d", guestID)
}

// GetGuestOrders tente de lire la liste des commandes d'un invité depuis
// Redis. Cache raté → (nil, false), l'appelant retombe sur Scylla.
func GetGuestOrders(ctx context.Context, guestID int64) ([]models.OrderProjection, bool) {
	data, err := database.Redis.Get(ctx, guestOrdersKey(guestID)).Result()
	if err != nil || data == "" {
		return nil, false
	}

	var orders []models.OrderProjection
	if json.Unmarshal([]byte(data), &orders) != nil {
		return nil, false
	}
	return orders, true
}

// SetGuestOrders met la liste en cache. Best effort : une erreur Redis ne
// remonte jamais jusqu'au client.
func SetGuestOrders(ctx context.Context, guestID int64, orders []models.OrderProjection) {
	data, err := json.Marshal(orders)
	if err != nil {
		return
	}
	database.Redis.Set(ctx, guestOrdersKey(guestID), data, GuestOrdersTTL)
}

// InvalidateGuestOrders invalide le cache après toute mutation de statut —
// la lecture suivante doit voir l'état persisté, pas une projection périmée.
func InvalidateGuestOrders(ctx context.Context, guestID int64) {
	database.Redis.Del(ctx, guestOrdersKey(guestID))
}
