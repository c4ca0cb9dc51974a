package models

import "time"

type Guest struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	TableNumber *int      `json:"tableNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (g *Guest) Summary() *GuestSummary {
	if g == nil {
		return nil
	}
	return &GuestSummary{ID: g.ID, Name: g.Name, TableNumber: g.TableNumber}
}

// Dish : entrée minimale du catalogue, lue uniquement pour figer un
// DishSnapshot à la création d'une commande. La gestion du menu se fait
// ailleurs.
type Dish struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Status      string `json:"status"`
}
