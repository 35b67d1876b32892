package lifecycle

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Store is the persistence the service needs. Lookups return nil, nil for
// an item that does not exist.
type Store interface {
	Insert(ctx context.Context, n store.NewItem) (*model.Item, error)
	FindByID(ctx context.Context, id string) (*model.Item, error)
	List(ctx context.Context, f store.ItemFilter) ([]model.Item, int, error)
	UpdateByID(ctx context.Context, id string, p store.ItemPatch) (*model.Item, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	SetImage(ctx context.Context, id string, data []byte, mime string) (bool, error)
	Image(ctx context.Context, id string) ([]byte, string, error)
}

// Service runs item operations on behalf of an explicit actor. It holds no
// per-request state.
type Service struct {
	Store  Store
	Images imaging.Options
	Now    func() time.Time
}

// NewService returns a service backed by st.
func NewService(st Store) *Service {
	return &Service{Store: st}
}

// ItemInput is the caller-supplied part of an item on create and update.
type ItemInput struct {
	model.ItemDetails
	// Status is optional. On create it defaults to lost; on update an empty
	// status leaves the lifecycle alone.
	Status string `json:"status"`
	// ReportedDate is only honored on create.
	ReportedDate *time.Time `json:"reported_date"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Page is one page of listed items.
type Page struct {
	Items      []model.Item `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC().Truncate(time.Second)
	}
	return time.Now().UTC().Truncate(time.Second)
}

// Create reports a new item on behalf of actor.
func (s *Service) Create(ctx context.Context, in ItemInput, actor *Actor) (*model.Item, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	in.Normalize()
	fields := in.Validate()
	status := strings.TrimSpace(in.Status)
	switch status {
	case "":
		status = model.ItemStatusLost
	case model.ItemStatusLost, model.ItemStatusFound:
	default:
		fields["status"] = "A new report must be lost or found"
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	reported := s.now()
	if in.ReportedDate != nil && !in.ReportedDate.IsZero() {
		reported = in.ReportedDate.UTC().Truncate(time.Second)
	}

	n := store.NewItem{
		Details:      in.ItemDetails,
		Status:       status,
		ReportedBy:   actor.ID,
		ReportedDate: reported,
	}
	if status == model.ItemStatusFound {
		n.FoundDate = &reported
	}

	item, err := s.Store.Insert(ctx, n)
	if err != nil {
		return nil, persistenceError("creating item", err)
	}
	return item, nil
}

// Get returns one item. Any authenticated actor may read any item.
func (s *Service) Get(ctx context.Context, id string, actor *Actor) (*model.Item, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.load(ctx, id)
}

// List returns one page of items matching f.
func (s *Service) List(ctx context.Context, f store.ItemFilter, actor *Actor) (*Page, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	fields := map[string]string{}
	if f.Status != "" && !model.ValidItemStatus(f.Status) {
		fields["status"] = "Unknown status filter"
	}
	if f.Category != "" && !model.ValidItemCategory(f.Category) {
		fields["category"] = "Unknown category filter"
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	items, total, err := s.Store.List(ctx, f)
	if err != nil {
		return nil, persistenceError("listing items", err)
	}
	if items == nil {
		items = []model.Item{}
	}

	page, limit := f.PageAndLimit()
	return &Page{
		Items: items,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// Update replaces the descriptive fields of an item. A non-empty status in
// the input goes through the same transition as ApplyTransition.
func (s *Service) Update(ctx context.Context, id string, in ItemInput, actor *Actor) (*model.Item, error) {
	item, err := s.authorized(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	in.Normalize()
	fields := in.Validate()

	var p store.ItemPatch
	if status := strings.TrimSpace(in.Status); status != "" {
		t, err := Plan(item, status, actor, s.now())
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
			for k, v := range verr.Fields {
				fields[k] = v
			}
		} else {
			p = t.patch()
		}
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	details := in.ItemDetails
	p.Details = &details
	return s.update(ctx, id, p)
}

// ApplyTransition moves an item to the requested status, stamping the
// lifecycle dates of the entered state on first entry.
func (s *Service) ApplyTransition(ctx context.Context, id, status string, actor *Actor) (*model.Item, error) {
	item, err := s.authorized(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	t, err := Plan(item, strings.TrimSpace(status), actor, s.now())
	if err != nil {
		return nil, err
	}
	if _, ok := t.(Unchanged); ok {
		return item, nil
	}
	return s.update(ctx, id, t.patch())
}

// Delete removes an item permanently.
func (s *Service) Delete(ctx context.Context, id string, actor *Actor) error {
	if _, err := s.authorized(ctx, id, actor); err != nil {
		return err
	}

	ok, err := s.Store.DeleteByID(ctx, id)
	if err != nil {
		return persistenceError("deleting item", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// SetImage processes and stores a photo for an item.
func (s *Service) SetImage(ctx context.Context, id string, r io.Reader, actor *Actor) error {
	if _, err := s.authorized(ctx, id, actor); err != nil {
		return err
	}

	photo, err := s.Images.Process(r)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
			return invalidField("image", err.Error())
		}
		return err
	}

	ok, err := s.Store.SetImage(ctx, id, photo.Data, photo.MIME)
	if err != nil {
		return persistenceError("storing image", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Image returns the stored photo of an item.
func (s *Service) Image(ctx context.Context, id string, actor *Actor) ([]byte, string, error) {
	if actor == nil {
		return nil, "", ErrUnauthenticated
	}

	data, mime, err := s.Store.Image(ctx, id)
	if err != nil {
		return nil, "", persistenceError("loading image", err)
	}
	if data == nil {
		return nil, "", ErrNotFound
	}
	return data, mime, nil
}

func (s *Service) load(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, persistenceError("loading item", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// authorized loads an item and checks that actor may mutate it.
func (s *Service) authorized(ctx context.Context, id string, actor *Actor) (*model.Item, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(item, actor) {
		return nil, ErrForbidden
	}
	return item, nil
}

func (s *Service) update(ctx context.Context, id string, p store.ItemPatch) (*model.Item, error) {
	item, err := s.Store.UpdateByID(ctx, id, p)
	if err != nil {
		return nil, persistenceError("updating item", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}
