package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/model"
)

// NewItem holds the values for inserting an item.
type NewItem struct {
	Details      model.ItemDetails
	Status       string
	ReportedBy   string
	ReportedDate time.Time
	FoundDate    *time.Time
}

// ItemPatch describes a single update of an item. Nil or empty fields are
// left unchanged. The lifecycle dates are only written when the stored
// value is still NULL.
type ItemPatch struct {
	Details      *model.ItemDetails
	Status       string
	ClaimedBy    string
	FoundDate    *time.Time
	ClaimedDate  *time.Time
	ReturnedDate *time.Time
}

// ItemFilter selects and orders items for listing.
type ItemFilter struct {
	Search     string
	Status     string
	Category   string
	Location   string
	ReportedBy string
	Page       int
	Limit      int
	SortBy     string
	SortAsc    bool
}

// Listing defaults.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// sortColumns maps accepted sort keys to columns.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"reportedDate": "reported_date",
	"name":         "name COLLATE NOCASE",
	"status":       "status",
}

// itemSelect selects all item columns plus the reporter and claimant names.
const itemSelect = `SELECT id, name, description, category, location, contact_info, status,
	reported_by, claimed_by, reported_date, found_date, claimed_date, returned_date,
	image_mime IS NOT NULL, created_at, updated_at,
	COALESCE((SELECT u.name FROM users u WHERE u.id = items.reported_by), ''),
	COALESCE((SELECT u.name FROM users u WHERE u.id = items.claimed_by), '')
	FROM items`

// CreateItem inserts a new item and returns it.
func CreateItem(ctx context.Context, db *sql.DB, n NewItem) (*model.Item, error) {
	id := uuid.New().String()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, name, description, category, location, contact_info,
		                    status, reported_by, reported_date, found_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, n.Details.Name, n.Details.Description, n.Details.Category, n.Details.Location,
		nullString(n.Details.ContactInfo), n.Status, n.ReportedBy, dbTime(n.ReportedDate), dbTimePtr(n.FoundDate),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx, itemSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns one page of items matching the filter together with the
// total number of matches.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, int, error) {
	where, args := f.where()

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	page, limit := f.PageAndLimit()
	order, ok := sortColumns[f.SortBy]
	if !ok {
		order = sortColumns["createdAt"]
	}
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}

	query := itemSelect + where + ` ORDER BY ` + order + ` ` + dir + `, id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	return items, total, nil
}

// UpdateItem applies a patch with a single conditional UPDATE. It reports
// false if the item no longer exists.
func UpdateItem(ctx context.Context, db *sql.DB, id string, p ItemPatch) (bool, error) {
	var sets []string
	var args []any

	if d := p.Details; d != nil {
		sets = append(sets, "name = ?", "description = ?", "category = ?", "location = ?", "contact_info = ?")
		args = append(args, d.Name, d.Description, d.Category, d.Location, nullString(d.ContactInfo))
	}
	if p.Status != "" {
		sets = append(sets, "status = ?")
		args = append(args, p.Status)
	}
	if p.ClaimedBy != "" {
		sets = append(sets, "claimed_by = ?")
		args = append(args, p.ClaimedBy)
	}
	if p.FoundDate != nil {
		sets = append(sets, "found_date = COALESCE(found_date, ?)")
		args = append(args, dbTime(*p.FoundDate))
	}
	if p.ClaimedDate != nil {
		sets = append(sets, "claimed_date = COALESCE(claimed_date, ?)")
		args = append(args, dbTime(*p.ClaimedDate))
	}
	if p.ReturnedDate != nil {
		sets = append(sets, "returned_date = COALESCE(returned_date, ?)")
		args = append(args, dbTime(*p.ReturnedDate))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	result, err := db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		append(args, id)...,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	return n > 0, nil
}

// DeleteItem permanently removes an item. It reports false if there was
// nothing to delete.
func DeleteItem(ctx context.Context, db *sql.DB, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	return n > 0, nil
}

// SetItemImage sets an item's image data. It reports false if the item does
// not exist.
func SetItemImage(ctx context.Context, db *sql.DB, id string, image []byte, mime string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return false, fmt.Errorf("setting item image: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting item image: %w", err)
	}
	return n > 0, nil
}

// GetItemImage returns an item's image data and MIME type. Data is nil if
// the item or its image does not exist.
func GetItemImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// CountItemsByStatus returns the number of items in each status.
func CountItemsByStatus(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting items by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(model.ItemStatuses))
	for _, s := range model.ItemStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ValidSortKey reports whether key is an accepted ItemFilter.SortBy value.
func ValidSortKey(key string) bool {
	_, ok := sortColumns[key]
	return ok
}

func (f ItemFilter) where() (string, []any) {
	var conds []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		conds = append(conds, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if l := strings.TrimSpace(f.Location); l != "" {
		conds = append(conds, `location LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(l)+"%")
	}
	if f.ReportedBy != "" {
		conds = append(conds, "reported_by = ?")
		args = append(args, f.ReportedBy)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// PageAndLimit returns the effective page and page size of the filter.
func (f ItemFilter) PageAndLimit() (int, int) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*model.Item, error) {
	item := &model.Item{}
	var contactInfo, claimedBy sql.NullString
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &item.Location, &contactInfo, &item.Status,
		&item.ReportedBy, &claimedBy, &item.ReportedDate, &item.FoundDate, &item.ClaimedDate, &item.ReturnedDate,
		&item.HasImage, &item.CreatedAt, &item.UpdatedAt,
		&item.ReporterName, &item.ClaimantName,
	)
	if err != nil {
		return nil, err
	}
	item.ContactInfo = contactInfo.String
	item.ClaimedBy = claimedBy.String
	return item, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// dbTime normalizes timestamps to UTC whole seconds so stored values sort
// lexically.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func dbTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := dbTime(*t)
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
