package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/najdeno/internal/model"
)

// ItemGateway exposes the item functions of this package as a value bound to
// one database.
type ItemGateway struct {
	DB *sql.DB
}

// Insert creates an item.
func (g ItemGateway) Insert(ctx context.Context, n NewItem) (*model.Item, error) {
	return CreateItem(ctx, g.DB, n)
}

// FindByID returns the item or nil if it does not exist.
func (g ItemGateway) FindByID(ctx context.Context, id string) (*model.Item, error) {
	return GetItem(ctx, g.DB, id)
}

// List returns a page of items and the total number of matches.
func (g ItemGateway) List(ctx context.Context, f ItemFilter) ([]model.Item, int, error) {
	return ListItems(ctx, g.DB, f)
}

// UpdateByID applies the patch and returns the updated item, or nil if the
// item is gone.
func (g ItemGateway) UpdateByID(ctx context.Context, id string, p ItemPatch) (*model.Item, error) {
	ok, err := UpdateItem(ctx, g.DB, id, p)
	if err != nil || !ok {
		return nil, err
	}
	return GetItem(ctx, g.DB, id)
}

// DeleteByID removes the item and reports whether it existed.
func (g ItemGateway) DeleteByID(ctx context.Context, id string) (bool, error) {
	return DeleteItem(ctx, g.DB, id)
}

// SetImage stores the item's image and reports whether the item exists.
func (g ItemGateway) SetImage(ctx context.Context, id string, data []byte, mime string) (bool, error) {
	return SetItemImage(ctx, g.DB, id, data, mime)
}

// Image returns the item's image, nil if there is none.
func (g ItemGateway) Image(ctx context.Context, id string) ([]byte, string, error) {
	return GetItemImage(ctx, g.DB, id)
}

// CountByStatus returns the number of items per status.
func (g ItemGateway) CountByStatus(ctx context.Context) (map[string]int, error) {
	return CountItemsByStatus(ctx, g.DB)
}
