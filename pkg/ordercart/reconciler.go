// Package ordercart : état local du panier d'un invité côté client.
//
// La projection optimiste est initialisée depuis le dernier snapshot serveur,
// peut être basculée provisoirement à Paid sur un signal non vérifié, et se
// fait toujours écraser entièrement par les données refetchées qui font
// autorité — jamais de fusion champ par champ.
package ordercart

import (
	"errors"
	"sync"

	"resto_back_end/internal/models"
	"resto_back_end/internal/payos"
)

var ErrNothingToPay = errors.New("aucune commande servie à encaisser")

type Totals struct {
	Price    int64 `json:"price"`
	Quantity int   `json:"quantity"`
}

// Summary : montants dérivés de la projection courante. Toujours recalculé
// par un fold complet — jamais un accumulateur incrémental qui pourrait
// double-compter un événement rejoué.
type Summary struct {
	WaitingForPaying Totals `json:"waitingForPaying"`
	Paid             Totals `json:"paid"`
}

type Reconciler struct {
	mu     sync.Mutex
	orders []models.OrderProjection
}

func NewReconciler() *Reconciler { return &Reconciler{} }

// SetServerOrders remplace intégralement la projection par l'état serveur.
// C'est le point d'entrée de l'événement `payment` (après refetch) comme du
// chargement initial : la donnée qui fait autorité gagne toujours.
func (r *Reconciler) SetServerOrders(orders []models.OrderProjection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = make([]models.OrderProjection, len(orders))
	copy(r.orders, orders)
}

// Orders retourne une copie de la projection courante.
func (r *Reconciler) Orders() []models.OrderProjection {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]models.OrderProjection, len(r.orders))
	copy(cp, r.orders)
	return cp
}

// ApplyPreliminaryPaid bascule localement toutes les commandes servies à
// Paid (signal `ui_preliminary_payment_update`, non vérifié). Retourne le
// nombre de lignes basculées ; l'appelant déclenche ensuite un refetch de
// l'état qui fait autorité.
func (r *Reconciler) ApplyPreliminaryPaid() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	flipped := 0
	for i := range r.orders {
		if r.orders[i].Status == models.StatusDelivered {
			r.orders[i].Status = models.StatusPaid
			flipped++
		}
	}
	return flipped
}

func (r *Reconciler) itemPrice(o *models.OrderProjection) int64 {
	if o.DishSnapshot != nil {
		return o.DishSnapshot.Price * int64(o.Quantity)
	}
	return o.Price * int64(o.Quantity)
}

// Totals recalcule les montants payé / à payer depuis la projection.
func (r *Reconciler) Totals() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Summary
	for i := range r.orders {
		o := &r.orders[i]
		switch o.Status {
		case models.StatusDelivered:
			s.WaitingForPaying.Price += r.itemPrice(o)
			s.WaitingForPaying.Quantity += o.Quantity
		case models.StatusPaid:
			s.Paid.Price += r.itemPrice(o)
			s.Paid.Quantity += o.Quantity
		}
	}
	return s
}

// BuildPaymentItems construit les lignes du lien de paiement : uniquement
// les commandes servies (Delivered). Total nul → rien à encaisser.
func (r *Reconciler) BuildPaymentItems() ([]payos.Item, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []payos.Item
	var total int64
	for i := range r.orders {
		o := &r.orders[i]
		if o.Status != models.StatusDelivered {
			continue
		}
		name := "Commande"
		unit := o.Price
		if o.DishSnapshot != nil {
			name = o.DishSnapshot.Name
			unit = o.DishSnapshot.Price
		}
		items = append(items, payos.Item{Name: name, Quantity: o.Quantity, Price: unit})
		total += unit * int64(o.Quantity)
	}
	if len(items) == 0 || total <= 0 {
		return nil, 0, ErrNothingToPay
	}
	return items, total, nil
}
