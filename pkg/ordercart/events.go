package ordercart

import (
	"encoding/json"
	"sync"
)

// Bus : distribution typée des événements poussés par le serveur. Chaque
// abonnement rend un handle à fermer par le composant qui le possède — pas
// d'état socket ambiant, pas de listeners dupliqués après une reconnexion.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(json.RawMessage)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(json.RawMessage))}
}

type Subscription struct {
	bus   *Bus
	event string
	id    int
	once  sync.Once
}

// Subscribe enregistre un handler pour un nom d'événement et retourne le
// handle qui le désenregistre.
func (b *Bus) Subscribe(event string, fn func(json.RawMessage)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.subs[event] == nil {
		b.subs[event] = make(map[int]func(json.RawMessage))
	}
	b.subs[event][b.nextID] = fn
	return &Subscription{bus: b, event: event, id: b.nextID}
}

// Close désenregistre le handler. Idempotent : le teardown d'un composant
// peut l'appeler sans se soucier d'un double Close.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs[s.event], s.id)
	})
}

// Dispatch livre un événement à tous les handlers abonnés.
func (b *Bus) Dispatch(event string, data json.RawMessage) {
	b.mu.Lock()
	handlers := make([]func(json.RawMessage), 0, len(b.subs[event]))
	for _, fn := range b.subs[event] {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(data)
	}
}
