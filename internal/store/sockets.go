package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"resto_back_end/internal/database"

	"github.com/gocql/gocql"
)

// Registre des connexions invités : un invité a au plus une connexion
// enregistrée — la dernière connexion gagne en cas de reconnexion. C'est le
// seul lien persisté entre le temps réel et le reste du système.

// RegisterSocket enregistre (ou remplace) la connexion active d'un invité.
func (s *ScyllaStore) RegisterSocket(ctx context.Context, guestID int64, socketID string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	err = session.Query(
		`INSERT INTO guest_sockets (guest_id, socket_id, updated_at) VALUES (?, ?, ?)`,
		guestID, socketID, time.Now().UTC()).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("enregistrement socket invité %d: %w", guestID, err)
	}
	log.Printf("🔌 Socket %s enregistré pour l'invité %d", socketID, guestID)
	return nil
}

// UnregisterSocket supprime le lien, mais seulement si la connexion
// enregistrée est encore celle qu'on ferme — une reconnexion plus récente ne
// doit pas être écrasée par le teardown de l'ancienne.
func (s *ScyllaStore) UnregisterSocket(ctx context.Context, guestID int64, socketID string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	current, err := s.FindSocket(ctx, guestID)
	if err != nil || current != socketID {
		return nil
	}
	return session.Query(`DELETE FROM guest_sockets WHERE guest_id = ?`, guestID).
		WithContext(ctx).Exec()
}

// FindSocket retourne l'ID de la connexion active d'un invité, ou
// ErrGuestNotFound s'il n'en a aucune.
func (s *ScyllaStore) FindSocket(ctx context.Context, guestID int64) (string, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return "", err
	}

	var socketID string
	err = session.Query(`SELECT socket_id FROM guest_sockets WHERE guest_id = ?`, guestID).
		WithContext(ctx).Scan(&socketID)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", ErrGuestNotFound
	}
	if err != nil {
		return "", err
	}
	return socketID, nil
}
