package payment

import (
	"context"
	"errors"
	"log"
	"strings"

	"resto_back_end/internal/models"
	"resto_back_end/internal/store"
)

// OrderStore : la partie du dépôt de commandes dont la réconciliation a
// besoin. Toute mutation réussie est visible (CAS) avant qu'une notification
// ne parte.
type OrderStore interface {
	FindOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, to models.OrderStatus, handlerID *string) (*models.Order, error)
	FindDishSnapshot(ctx context.Context, id int64) (*models.DishSnapshot, error)
	FindGuest(ctx context.Context, id int64) (*models.Guest, error)
}

// Notifier : diffusion des changements de statut. Livraison fire-and-forget,
// un invité déconnecté est un no-op silencieux.
type Notifier interface {
	BroadcastToManagers(ctx context.Context, event string, payload interface{})
	NotifyGuest(ctx context.Context, guestID int64, event string, payload interface{})
}

// EventPayment : confirmation faisant autorité, émise uniquement après
// vérification de signature et persistance. Le payload est un tableau de
// projections de commandes.
const EventPayment = "payment"

type Outcome int

const (
	// OutcomeApplied : statut persisté et notification émise.
	OutcomeApplied Outcome = iota
	// OutcomeAlreadyProcessed : la commande était déjà dans un état terminal.
	// No-op idempotent, aucune ré-émission (pas de double toast client).
	OutcomeAlreadyProcessed
	// OutcomeOrderNotFound : orderCode inconnu. On logge et on acquitte quand
	// même — le prestataire ne doit pas réessayer indéfiniment pour une
	// donnée qui ne se résoudra jamais.
	OutcomeOrderNotFound
	// OutcomeIgnored : transition impossible depuis l'état courant (ex :
	// webhook de paiement pour une commande jamais servie). Loggé et
	// acquitté, même logique que OrderNotFound.
	OutcomeIgnored
)

type Result struct {
	Outcome Outcome
	Order   *models.Order
	// Payload envoyé aux clients quand Outcome == OutcomeApplied.
	Payload []models.OrderProjection
}

// Reconciler applique un résultat de transaction vérifié à l'état persisté,
// exactement une fois.
type Reconciler struct {
	Store    OrderStore
	Notifier Notifier
}

func NewReconciler(s OrderStore, n Notifier) *Reconciler {
	return &Reconciler{Store: s, Notifier: n}
}

// targetStatus traduit le code de résultat du prestataire en statut cible.
// "00" = succès ; tout le reste est un échec, requalifié en annulation quand
// la description du prestataire le dit.
func targetStatus(code, desc string) models.OrderStatus {
	if code == "00" {
		return models.StatusPaid
	}
	if strings.Contains(strings.ToLower(desc), "cancel") {
		return models.StatusCancelled
	}
	return models.StatusFailed
}

// ApplyPaymentOutcome résout l'orderCode externe (1:1 avec l'ID interne),
// applique la transition si elle n'a pas déjà eu lieu, persiste, puis
// déclenche le fan-out. Seule une erreur de persistance remonte à l'appelant
// (→ 500, le prestataire réessaiera : l'opération est idempotente).
func (r *Reconciler) ApplyPaymentOutcome(ctx context.Context, orderCode int64, code, desc string) (*Result, error) {
	target := targetStatus(code, desc)

	order, err := r.Store.FindOrder(ctx, orderCode)
	if errors.Is(err, store.ErrOrderNotFound) {
		log.Printf("⚠️ Webhook pour la commande %d : introuvable en base, acquitté sans mise à jour", orderCode)
		return &Result{Outcome: OutcomeOrderNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	if order.Status == models.StatusPaid {
		log.Printf("🔁 Commande %d déjà Paid — webhook dupliqué ignoré", orderCode)
		return &Result{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
	}

	updated, err := r.Store.UpdateStatus(ctx, orderCode, target, nil)
	if errors.Is(err, store.ErrAlreadyProcessed) {
		// Livraison concurrente du même webhook : l'autre a gagné la course.
		return &Result{Outcome: OutcomeAlreadyProcessed, Order: updated}, nil
	}
	if errors.Is(err, store.ErrInvalidTransition) {
		log.Printf("⚠️ Commande %d : transition %s → %s refusée, webhook acquitté sans effet",
			orderCode, order.Status, target)
		return &Result{Outcome: OutcomeIgnored, Order: order}, nil
	}
	if err != nil {
		return nil, err
	}

	payload := r.buildPayload(ctx, updated)

	r.Notifier.BroadcastToManagers(ctx, EventPayment, payload)
	if updated.GuestID != nil {
		r.Notifier.NotifyGuest(ctx, *updated.GuestID, EventPayment, payload)
	}
	log.Printf("✅ Commande %d passée à %s, événement '%s' diffusé", orderCode, target, EventPayment)

	return &Result{Outcome: OutcomeApplied, Order: updated, Payload: payload}, nil
}

// buildPayload assemble la projection socket. Snapshot et invité sont
// enrichis best effort : leur absence ne bloque pas la confirmation.
func (r *Reconciler) buildPayload(ctx context.Context, order *models.Order) []models.OrderProjection {
	snap, err := r.Store.FindDishSnapshot(ctx, order.DishSnapshotID)
	if err != nil {
		log.Printf("⚠️ Snapshot %d introuvable pour la commande %d: %v", order.DishSnapshotID, order.ID, err)
		snap = nil
	}

	var guest *models.GuestSummary
	if order.GuestID != nil {
		if g, err := r.Store.FindGuest(ctx, *order.GuestID); err == nil {
			guest = g.Summary()
		}
	}

	return []models.OrderProjection{models.Projection(order, snap, guest)}
}
