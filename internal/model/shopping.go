package model

import (
	"iter"
	"slices"
)

// ShoppingItem is one consolidated line of a shopping list: the total amount
// of an ingredient across every recipe in a user's cart.
type ShoppingItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// ShoppingList is ordered by ingredient name.
type ShoppingList []ShoppingItem

// All iterates over the items in order.
func (l ShoppingList) All() iter.Seq[ShoppingItem] {
	return slices.Values(l)
}
