package lifecycle

import (
	"github.com/erazemk/najdeno/internal/model"
)

// Actor is the verified identity performing an operation.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin reports whether the actor has the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == model.RoleAdmin
}

// CanMutate reports whether actor may update or delete item: only its
// reporter or an admin may.
func CanMutate(item *model.Item, actor *Actor) bool {
	if item == nil || actor == nil {
		return false
	}
	return (actor.ID != "" && actor.ID == item.ReportedBy) || actor.IsAdmin()
}

func authorize(item *model.Item, actor *Actor) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !CanMutate(item, actor) {
		return ErrForbidden
	}
	return nil
}
