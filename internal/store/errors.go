package store

import "errors"

var (
	ErrOrderNotFound     = errors.New("commande introuvable")
	ErrDishNotFound      = errors.New("plat introuvable")
	ErrGuestNotFound     = errors.New("invité introuvable")
	ErrInvalidTransition = errors.New("transition de statut interdite")
	// ErrAlreadyProcessed : la commande porte déjà le statut demandé. Ce n'est
	// pas une vraie erreur — c'est le signal de déduplication des webhooks.
	ErrAlreadyProcessed = errors.New("statut déjà appliqué")
)
