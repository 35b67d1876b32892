package model

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Item is a reported lost or found object tracked through its status lifecycle.
type Item struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Location     string     `json:"location"`
	ContactInfo  string     `json:"contact_info,omitempty"`
	Status       string     `json:"status"`
	ReportedBy   string     `json:"reported_by"`
	ClaimedBy    string     `json:"claimed_by,omitempty"`
	ReportedDate time.Time  `json:"reported_date"`
	FoundDate    *time.Time `json:"found_date,omitempty"`
	ClaimedDate  *time.Time `json:"claimed_date,omitempty"`
	ReturnedDate *time.Time `json:"returned_date,omitempty"`
	HasImage     bool       `json:"has_image"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	ReporterName string `json:"reporter_name,omitempty"`
	ClaimantName string `json:"claimant_name,omitempty"`
}

// Item statuses.
const (
	ItemStatusLost     = "lost"
	ItemStatusFound    = "found"
	ItemStatusClaimed  = "claimed"
	ItemStatusReturned = "returned"
)

// ItemStatuses lists every status in lifecycle order.
var ItemStatuses = []string{
	ItemStatusLost,
	ItemStatusFound,
	ItemStatusClaimed,
	ItemStatusReturned,
}

// ValidItemStatus reports whether s is one of the four item statuses.
func ValidItemStatus(s string) bool {
	switch s {
	case ItemStatusLost, ItemStatusFound, ItemStatusClaimed, ItemStatusReturned:
		return true
	}
	return false
}

// ItemCategories lists the accepted item categories.
var ItemCategories = []string{
	"Electronics",
	"Clothing",
	"Accessories",
	"Books",
	"Keys",
	"Bags",
	"Jewelry",
	"Documents",
	"Sports Equipment",
	"Other",
}

// ValidItemCategory reports whether c is one of ItemCategories.
func ValidItemCategory(c string) bool {
	for _, known := range ItemCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Field length limits.
const (
	MaxItemNameLen        = 100
	MaxItemDescriptionLen = 500
	MaxItemLocationLen    = 200
	MaxItemContactLen     = 200
)

// ItemDetails holds the descriptive fields of an item. They have no effect
// on the lifecycle.
type ItemDetails struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	ContactInfo string `json:"contact_info"`
}

// Normalize trims surrounding whitespace from every field.
func (d *ItemDetails) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	d.Location = strings.TrimSpace(d.Location)
	d.ContactInfo = strings.TrimSpace(d.ContactInfo)
}

// Validate checks presence and length of each field and returns a message
// per offending field. An empty map means the details are valid.
func (d ItemDetails) Validate() map[string]string {
	errs := make(map[string]string)

	checkText := func(field, value, label string, max int, required bool) {
		if value == "" {
			if required {
				errs[field] = label + " is required"
			}
			return
		}
		if utf8.RuneCountInString(value) > max {
			errs[field] = label + " cannot exceed " + strconv.Itoa(max) + " characters"
		}
	}

	checkText("name", d.Name, "Item name", MaxItemNameLen, true)
	checkText("description", d.Description, "Description", MaxItemDescriptionLen, true)
	checkText("location", d.Location, "Location", MaxItemLocationLen, true)
	checkText("contact_info", d.ContactInfo, "Contact info", MaxItemContactLen, false)

	switch {
	case d.Category == "":
		errs["category"] = "Category is required"
	case !ValidItemCategory(d.Category):
		errs["category"] = "Category must be one of " + strings.Join(ItemCategories, ", ")
	}

	return errs
}

// Details returns the descriptive fields of the item.
func (i *Item) Details() ItemDetails {
	return ItemDetails{
		Name:        i.Name,
		Description: i.Description,
		Category:    i.Category,
		Location:    i.Location,
		ContactInfo: i.ContactInfo,
	}
}
