package ordercart

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client : connexion websocket au serveur, qui pompe les trames reçues dans
// le Bus. La boucle de lecture appartient au Client ; les composants UI ne
// touchent jamais la connexion, seulement leurs abonnements.
type Client struct {
	conn *websocket.Conn
	bus  *Bus
	done chan struct{}
}

// Dial ouvre la connexion (token porteur dans le header) et démarre la
// boucle de lecture.
func Dial(ctx context.Context, url, token string, bus *Bus) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	c := &Client{conn: conn, bus: bus, done: make(chan struct{})}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// trame de service (connected, ping…) ou bruit : ignorée
			continue
		}
		if env.Event == "" {
			continue
		}
		c.bus.Dispatch(env.Event, env.Data)
	}
}

// Done est fermé quand la boucle de lecture s'arrête (déconnexion).
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() {
	if err := c.conn.Close(); err != nil {
		log.Println("⚠️ Fermeture websocket:", err)
	}
}
