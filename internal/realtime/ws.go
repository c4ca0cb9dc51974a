package realtime

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

// SocketRegistry : enregistrement persisté de la connexion active d'un
// invité. Dernière connexion gagnante.
type SocketRegistry interface {
	SocketDirectory
	RegisterSocket(ctx context.Context, guestID int64, socketID string) error
	UnregisterSocket(ctx context.Context, guestID int64, socketID string) error
}

// Server expose le endpoint websocket commun aux deux rôles : les claims du
// token décident du groupe (ManagerRoom ou canal invité).
type Server struct {
	Hub      *Hub
	Registry SocketRegistry
}

func NewServer(hub *Hub, registry SocketRegistry) *Server {
	return &Server{Hub: hub, Registry: registry}
}

// Serve upgrade la connexion et relaie les événements Redis vers le client.
func (s *Server) Serve(c *gin.Context) {
	role := c.GetString("role")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := context.Background()
	socketID := uuid.NewString()

	var channel string
	switch role {
	case "manager", "owner":
		channel = roomChannel(ManagerRoom)
	default:
		guestID := c.GetInt64("guest_id")
		if guestID == 0 {
			conn.WriteJSON(gin.H{"type": "error", "message": "Invité non authentifié"})
			return
		}
		if err := s.Registry.RegisterSocket(ctx, guestID, socketID); err != nil {
			log.Printf("❌ Enregistrement socket invité %d: %v", guestID, err)
			return
		}
		defer s.Registry.UnregisterSocket(ctx, guestID, socketID)
		channel = socketChannel(socketID)
	}

	pubsub := s.Hub.Redis.Subscribe(ctx, channel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	conn.WriteJSON(gin.H{
		"type":     "connected",
		"socketId": socketID,
	})

	// Boucle d'écoute : trames Redis relayées telles quelles, ping toutes
	// les 30s pour garder la connexion active. Une erreur d'écriture vaut
	// déconnexion.
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-time.After(30 * time.Second):
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
