package models

import "time"

type OrderStatus string

const (
	StatusCreated   OrderStatus = "Created"
	StatusDelivered OrderStatus = "Delivered"
	StatusPaid      OrderStatus = "Paid"
	StatusCancelled OrderStatus = "Cancelled"
	StatusFailed    OrderStatus = "Failed"
)

// IsTerminal : Paid / Cancelled / Failed sont des états finaux, plus aucune
// transition n'est permise ensuite.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled || s == StatusFailed
}

// CanTransition vérifie la machine à états d'une commande :
// Created → Delivered → Paid, avec Cancelled/Failed atteignables depuis
// n'importe quel état non terminal.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case StatusDelivered:
		return from == StatusCreated
	case StatusPaid:
		return from == StatusDelivered
	case StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Order : une ligne de l'addition d'un invité. L'ID (entier) sert aussi de
// orderCode côté prestataire de paiement.
type Order struct {
	ID             int64       `json:"id"`
	GuestID        *int64      `json:"guestId"`
	TableNumber    *int        `json:"tableNumber"`
	DishSnapshotID int64       `json:"dishSnapshotId"`
	Quantity       int         `json:"quantity"`
	Price          int64       `json:"price"`
	TotalPrice     int64       `json:"totalPrice"`
	Status         OrderStatus `json:"status"`
	HandlerID      *string     `json:"orderHandlerId"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// DishSnapshot : copie figée d'un plat au moment de la commande. Créée une
// fois, jamais modifiée — les commandes historiques restent lisibles même si
// le plat est édité ou supprimé ensuite.
type DishSnapshot struct {
	ID          int64     `json:"id"`
	DishID      *int64    `json:"dishId"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GuestSummary : la partie de l'invité embarquée dans les payloads socket.
type GuestSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TableNumber *int   `json:"tableNumber"`
}

// OrderProjection : le format envoyé aux clients connectés (événements
// `payment` et `update-order`). Le payload de `payment` est un tableau de
// projections.
type OrderProjection struct {
	ID           int64         `json:"id"`
	Status       OrderStatus   `json:"status"`
	Guest        *GuestSummary `json:"guest"`
	GuestID      *int64        `json:"guestId"`
	TableNumber  *int          `json:"tableNumber"`
	DishID       *int64        `json:"dishId"`
	Quantity     int           `json:"quantity"`
	Price        int64         `json:"price"`
	TotalPrice   int64         `json:"totalPrice"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	DishSnapshot *DishSnapshot `json:"dishSnapshot"`
}

// Projection assemble la projection socket d'une commande.
func Projection(o *Order, snap *DishSnapshot, guest *GuestSummary) OrderProjection {
	p := OrderProjection{
		ID:           o.ID,
		Status:       o.Status,
		Guest:        guest,
		GuestID:      o.GuestID,
		TableNumber:  o.TableNumber,
		Quantity:     o.Quantity,
		Price:        o.Price,
		TotalPrice:   o.TotalPrice,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		DishSnapshot: snap,
	}
	if snap != nil {
		p.DishID = snap.DishID
	}
	return p
}
