package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort direction to ASC or DESC.
// Anything other than "asc" sorts descending.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField maps an API sort key to its column. Unknown or empty keys
// fall back to defaultColumn, so the result is always safe to interpolate.
func ValidateSortField(sortField string, allowed map[string]string, defaultColumn string) string {
	if column, ok := allowed[strings.TrimSpace(sortField)]; ok {
		return column
	}
	return defaultColumn
}

// AccountSortFields are the client list sort keys
var AccountSortFields = map[string]string{
	"lastVisit":      "last_visit",
	"createdAt":      "created_at",
	"points":         "points",
	"name":           "name",
	"totalSpent":     "total_spent",
	"totalPurchases": "total_purchases",
}

// orderClause builds "column DIR" from a page's sort options.
func orderClause(page sortable, allowed map[string]string, defaultColumn string) string {
	by, dir := page.SortKeys()
	return ValidateSortField(by, allowed, defaultColumn) + " " + ValidateSortOrder(dir)
}

type sortable interface {
	SortKeys() (by, dir string)
}
