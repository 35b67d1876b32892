package lifecycle

import (
	"time"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Transition is a planned status change. Each variant writes only the
// fields its target state owns.
type Transition interface {
	// Target is the status the item has after the transition.
	Target() string
	patch() store.ItemPatch
}

// MarkFound moves an item to found and stamps the found date if unset.
type MarkFound struct {
	At time.Time
}

// MarkClaimed moves an item to claimed, records the claimant and stamps
// the claimed date if unset.
type MarkClaimed struct {
	By string
	At time.Time
}

// MarkReturned moves an item to returned and stamps the returned date if
// unset.
type MarkReturned struct {
	At time.Time
}

// Reopen moves an item back to lost. No dates are touched.
type Reopen struct{}

// Unchanged is planned when the requested status is the current one.
type Unchanged struct {
	Status string
}

func (MarkFound) Target() string    { return model.ItemStatusFound }
func (MarkClaimed) Target() string  { return model.ItemStatusClaimed }
func (MarkReturned) Target() string { return model.ItemStatusReturned }
func (Reopen) Target() string       { return model.ItemStatusLost }
func (u Unchanged) Target() string  { return u.Status }

func (t MarkFound) patch() store.ItemPatch {
	at := t.At
	return store.ItemPatch{Status: model.ItemStatusFound, FoundDate: &at}
}

func (t MarkClaimed) patch() store.ItemPatch {
	at := t.At
	return store.ItemPatch{Status: model.ItemStatusClaimed, ClaimedBy: t.By, ClaimedDate: &at}
}

func (t MarkReturned) patch() store.ItemPatch {
	at := t.At
	return store.ItemPatch{Status: model.ItemStatusReturned, ReturnedDate: &at}
}

func (Reopen) patch() store.ItemPatch {
	return store.ItemPatch{Status: model.ItemStatusLost}
}

func (Unchanged) patch() store.ItemPatch {
	return store.ItemPatch{}
}

// Plan picks the transition that takes item to the requested status.
// Any of the four statuses is an acceptable target; the graph is not
// enforced beyond that.
func Plan(item *model.Item, requested string, actor *Actor, now time.Time) (Transition, error) {
	if !model.ValidItemStatus(requested) {
		return nil, invalidField("status", "Status must be one of lost, found, claimed, returned")
	}
	if requested == item.Status {
		return Unchanged{Status: requested}, nil
	}

	switch requested {
	case model.ItemStatusFound:
		return MarkFound{At: now}, nil
	case model.ItemStatusClaimed:
		return MarkClaimed{By: actor.ID, At: now}, nil
	case model.ItemStatusReturned:
		return MarkReturned{At: now}, nil
	default:
		return Reopen{}, nil
	}
}

// Apply authorizes actor, plans the transition to requested and returns a
// copy of item with the transition applied. item itself is not modified.
func Apply(item *model.Item, requested string, actor *Actor, now time.Time) (*model.Item, error) {
	if err := authorize(item, actor); err != nil {
		return nil, err
	}
	t, err := Plan(item, requested, actor, now)
	if err != nil {
		return nil, err
	}

	updated := *item
	applyPatch(&updated, t.patch())
	return &updated, nil
}

// applyPatch mirrors store.UpdateItem on an in-memory item.
func applyPatch(item *model.Item, p store.ItemPatch) {
	if d := p.Details; d != nil {
		item.Name = d.Name
		item.Description = d.Description
		item.Category = d.Category
		item.Location = d.Location
		item.ContactInfo = d.ContactInfo
	}
	if p.Status != "" {
		item.Status = p.Status
	}
	if p.ClaimedBy != "" {
		item.ClaimedBy = p.ClaimedBy
	}
	item.FoundDate = firstTime(item.FoundDate, p.FoundDate)
	item.ClaimedDate = firstTime(item.ClaimedDate, p.ClaimedDate)
	item.ReturnedDate = firstTime(item.ReturnedDate, p.ReturnedDate)
}

func firstTime(existing, next *time.Time) *time.Time {
	if existing != nil || next == nil {
		return existing
	}
	t := *next
	return &t
}

// Offered returns the transitions the UI offers from status, in display
// order.
func Offered(status string) []string {
	switch status {
	case model.ItemStatusLost:
		return []string{model.ItemStatusFound}
	case model.ItemStatusFound:
		return []string{model.ItemStatusClaimed, model.ItemStatusLost}
	case model.ItemStatusClaimed:
		return []string{model.ItemStatusReturned, model.ItemStatusFound}
	}
	return nil
}
