package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Les noms d'événements font partie du contrat avec les clients.
const (
	ManagerRoom = "ManagerRoom"

	EventUpdateOrder        = "update-order"
	EventPayment            = "payment"
	EventPreliminaryPayment = "ui_preliminary_payment_update"
)

func roomChannel(room string) string       { return "orders:room:" + room }
func socketChannel(socketID string) string { return "orders:socket:" + socketID }

// Envelope : trame poussée sur les websockets.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// SocketDirectory : résolution invité → connexion enregistrée.
type SocketDirectory interface {
	FindSocket(ctx context.Context, guestID int64) (string, error)
}

// Hub publie les événements sur Redis ; chaque connexion websocket est
// abonnée à son (ses) canal(aux). Fire-and-forget : pas de file d'attente
// pour les managers hors ligne, le client se resynchronise par refetch.
type Hub struct {
	Redis   *redis.Client
	Sockets SocketDirectory
}

func NewHub(rdb *redis.Client, sockets SocketDirectory) *Hub {
	return &Hub{Redis: rdb, Sockets: sockets}
}

func (h *Hub) publish(ctx context.Context, channel, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Printf("❌ Sérialisation événement '%s' impossible: %v", event, err)
		return
	}
	if err := h.Redis.Publish(ctx, channel, data).Err(); err != nil {
		// Une notification perdue n'est pas une erreur : le client se
		// rattrape au prochain fetch.
		log.Printf("⚠️ Publication '%s' sur %s échouée: %v", event, channel, err)
	}
}

// BroadcastToManagers diffuse à toutes les sessions du dashboard staff
// actuellement connectées.
func (h *Hub) BroadcastToManagers(ctx context.Context, event string, payload interface{}) {
	h.publish(ctx, roomChannel(ManagerRoom), event, payload)
}

// NotifyGuest livre à la connexion enregistrée de l'invité. Aucun socket
// enregistré → no-op silencieux.
func (h *Hub) NotifyGuest(ctx context.Context, guestID int64, event string, payload interface{}) {
	socketID, err := h.Sockets.FindSocket(ctx, guestID)
	if err != nil || socketID == "" {
		return
	}
	h.publish(ctx, socketChannel(socketID), event, payload)
}
