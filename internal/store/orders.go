package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"resto_back_end/internal/database"
	"resto_back_end/internal/models"

	"github.com/gocql/gocql"
)

// ScyllaStore : accès aux commandes dans le keyspace orders. La mutation de
// statut passe par une transaction légère (IF status = ?) — c'est la seule
// primitive d'ordonnancement entre un webhook et une édition manuelle du
// staff qui visent la même commande.
type ScyllaStore struct{}

func NewScyllaStore() *ScyllaStore { return &ScyllaStore{} }

const orderColumns = `id, guest_id, table_number, dish_snapshot_id, quantity, price, total_price, status, handler_id, created_at, updated_at`

func scanOrder(scanner interface {
	Scan(...interface{}) error
}) (*models.Order, error) {
	var o models.Order
	var status string
	err := scanner.Scan(&o.ID, &o.GuestID, &o.TableNumber, &o.DishSnapshotID,
		&o.Quantity, &o.Price, &o.TotalPrice, &status, &o.HandlerID,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}

// FindOrder récupère une commande par son ID.
func (s *ScyllaStore) FindOrder(ctx context.Context, id int64) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	q := session.Query(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id).WithContext(ctx)
	o, err := scanOrder(q)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %d: %w", id, err)
	}
	return o, nil
}

// UpdateStatus applique une transition de statut de façon atomique
// (lecture + CAS sous LWT). Rejouer la même transition terminale renvoie
// ErrAlreadyProcessed avec la commande courante — jamais une corruption.
// handlerID est renseigné quand c'est le staff qui manipule la commande.
func (s *ScyllaStore) UpdateStatus(ctx context.Context, id int64, to models.OrderStatus, handlerID *string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		o, err := s.FindOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if o.Status == to {
			return o, ErrAlreadyProcessed
		}
		if !models.CanTransition(o.Status, to) {
			return o, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, o.Status, to)
		}

		now := time.Now().UTC()
		handler := o.HandlerID
		if handlerID != nil {
			handler = handlerID
		}

		previous := make(map[string]interface{})
		applied, err := session.Query(
			`UPDATE orders SET status = ?, handler_id = ?, updated_at = ? WHERE id = ? IF status = ?`,
			string(to), handler, now, id, string(o.Status),
		).WithContext(ctx).MapScanCAS(previous)
		if err != nil {
			return nil, fmt.Errorf("mise à jour commande %d: %w", id, err)
		}
		if applied {
			o.Status = to
			o.HandlerID = handler
			o.UpdatedAt = now
			return o, nil
		}

		// Course perdue contre une écriture concurrente : on relit et on
		// réévalue la transition depuis le statut gagnant.
		log.Printf("🔁 CAS perdu pour la commande %d (statut actuel: %v), nouvelle tentative", id, previous["status"])
	}
	return nil, fmt.Errorf("commande %d: trop de conflits d'écriture", id)
}

// ListOrdersForGuest renvoie les commandes d'un invité dans l'ordre de
// création. Les IDs sont monotones (compteur Redis), l'ordre de clustering
// ascendant d'orders_by_guest suffit.
func (s *ScyllaStore) ListOrdersForGuest(ctx context.Context, guestID int64) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT order_id FROM orders_by_guest WHERE guest_id = ?`, guestID).
		WithContext(ctx).Iter()

	var ids []int64
	var id int64
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("index commandes invité %d: %w", guestID, err)
	}

	orders := make([]models.Order, 0, len(ids))
	for _, oid := range ids {
		o, err := s.FindOrder(ctx, oid)
		if errors.Is(err, ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// nextID tire un identifiant monotone depuis Redis — Scylla n'a pas
// d'auto-incrément et le prestataire exige un orderCode entier.
func nextID(ctx context.Context, counter string) (int64, error) {
	id, err := database.Redis.Incr(ctx, counter).Result()
	if err != nil {
		return 0, fmt.Errorf("compteur %s: %w", counter, err)
	}
	return id, nil
}

// CreateOrder fige un DishSnapshot depuis le catalogue puis insère la
// commande au statut Created. Le snapshot est immuable : les commandes
// historiques survivent à l'édition ou la suppression du plat.
func (s *ScyllaStore) CreateOrder(ctx context.Context, guestID *int64, tableNumber *int, dishID int64, quantity int) (*models.Order, *models.DishSnapshot, error) {
	if quantity <= 0 {
		return nil, nil, fmt.Errorf("quantité invalide: %d", quantity)
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, nil, err
	}

	dish, err := s.FindDish(ctx, dishID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()

	snapID, err := nextID(ctx, "dish_snapshots:next_id")
	if err != nil {
		return nil, nil, err
	}
	snap := &models.DishSnapshot{
		ID:          snapID,
		DishID:      &dish.ID,
		Name:        dish.Name,
		Price:       dish.Price,
		Description: dish.Description,
		Image:       dish.Image,
		Status:      dish.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = session.Query(
		`INSERT INTO dish_snapshots (id, dish_id, name, price, description, image, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.DishID, snap.Name, snap.Price, snap.Description, snap.Image, snap.Status, now, now,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, nil, fmt.Errorf("insertion snapshot: %w", err)
	}

	orderID, err := nextID(ctx, "orders:next_id")
	if err != nil {
		return nil, nil, err
	}
	order := &models.Order{
		ID:             orderID,
		GuestID:        guestID,
		TableNumber:    tableNumber,
		DishSnapshotID: snap.ID,
		Quantity:       quantity,
		Price:          dish.Price,
		TotalPrice:     dish.Price * int64(quantity),
		Status:         models.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = session.Query(
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.GuestID, order.TableNumber, order.DishSnapshotID,
		order.Quantity, order.Price, order.TotalPrice, string(order.Status),
		order.HandlerID, now, now,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, nil, fmt.Errorf("insertion commande: %w", err)
	}

	if guestID != nil {
		err = session.Query(`INSERT INTO orders_by_guest (guest_id, order_id) VALUES (?, ?)`,
			*guestID, order.ID).WithContext(ctx).Exec()
		if err != nil {
			return nil, nil, fmt.Errorf("index invité: %w", err)
		}
	}

	log.Printf("🧾 Commande %d créée (plat %s x%d, total %d)", order.ID, dish.Name, quantity, order.TotalPrice)
	return order, snap, nil
}

// Projection assemble la projection socket d'une commande, snapshot et
// invité chargés best effort.
func (s *ScyllaStore) Projection(ctx context.Context, o *models.Order) models.OrderProjection {
	snap, err := s.FindDishSnapshot(ctx, o.DishSnapshotID)
	if err != nil {
		snap = nil
	}
	var guest *models.GuestSummary
	if o.GuestID != nil {
		if g, err := s.FindGuest(ctx, *o.GuestID); err == nil {
			guest = g.Summary()
		}
	}
	return models.Projection(o, snap, guest)
}

// FindDishSnapshot récupère un snapshot (lecture seule après création).
func (s *ScyllaStore) FindDishSnapshot(ctx context.Context, id int64) (*models.DishSnapshot, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var snap models.DishSnapshot
	err = session.Query(
		`SELECT id, dish_id, name, price, description, image, status, created_at, updated_at
		 FROM dish_snapshots WHERE id = ?`, id).WithContext(ctx).
		Scan(&snap.ID, &snap.DishID, &snap.Name, &snap.Price, &snap.Description,
			&snap.Image, &snap.Status, &snap.CreatedAt, &snap.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrDishNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// FindDish lit le catalogue, uniquement pour figer un snapshot.
func (s *ScyllaStore) FindDish(ctx context.Context, id int64) (*models.Dish, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var d models.Dish
	err = session.Query(
		`SELECT id, name, price, description, image, status FROM dishes WHERE id = ?`, id).
		WithContext(ctx).
		Scan(&d.ID, &d.Name, &d.Price, &d.Description, &d.Image, &d.Status)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrDishNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindGuest récupère un invité (pour les résumés embarqués dans les events).
func (s *ScyllaStore) FindGuest(ctx context.Context, id int64) (*models.Guest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var g models.Guest
	err = session.Query(`SELECT id, name, table_number, created_at FROM guests WHERE id = ?`, id).
		WithContext(ctx).
		Scan(&g.ID, &g.Name, &g.TableNumber, &g.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrGuestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
