package model

// RelationKind distinguishes the user→recipe relations that share one table.
type RelationKind string

const (
	RelationFavorite RelationKind = "favorite"
	RelationCart     RelationKind = "cart"
)

// Valid reports whether k is a known relation kind.
func (k RelationKind) Valid() bool {
	return k == RelationFavorite || k == RelationCart
}

// Label is the human-readable collection name used in messages.
func (k RelationKind) Label() string {
	switch k {
	case RelationFavorite:
		return "favorites"
	case RelationCart:
		return "shopping cart"
	default:
		return string(k)
	}
}
