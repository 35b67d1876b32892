package store

import (
	"net/url"
	"strconv"
	"strings"
)

// ItemFilterFromQuery reads list filters from query parameters: search,
// status, category, location, page, limit, sortBy and sortOrder. Malformed
// values are reported per parameter.
func ItemFilterFromQuery(q url.Values) (ItemFilter, map[string]string) {
	f := ItemFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Location: strings.TrimSpace(q.Get("location")),
		SortBy:   q.Get("sortBy"),
	}
	errs := make(map[string]string)

	for _, p := range []struct {
		key string
		dst *int
	}{{"page", &f.Page}, {"limit", &f.Limit}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs[p.key] = p.key + " must be a positive number"
			continue
		}
		*p.dst = n
	}

	if f.SortBy != "" && !ValidSortKey(f.SortBy) {
		errs["sortBy"] = "sortBy must be one of createdAt, reportedDate, name, status"
	}
	switch strings.ToLower(q.Get("sortOrder")) {
	case "", "desc":
	case "asc":
		f.SortAsc = true
	default:
		errs["sortOrder"] = "sortOrder must be asc or desc"
	}

	return f, errs
}

// Query encodes the filter back into query parameters. Defaults are left
// out.
func (f ItemFilter) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", f.Search)
	set("status", f.Status)
	set("category", f.Category)
	set("location", f.Location)
	set("sortBy", f.SortBy)
	if f.SortAsc {
		q.Set("sortOrder", "asc")
	}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 && f.Limit != DefaultPageLimit {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}
