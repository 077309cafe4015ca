// Package query turns request parameters into deterministic, paginated
// SQL fragments over a policy-scoped collection.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/makersite/makersite/pkg/policy"
)

const (
	DefaultPerPage    = 15
	DefaultMaxPerPage = 100
	DefaultSortColumn = "created_at"
)

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Params are the caller-supplied shaping parameters. Zero values fall
// back to the per-entity defaults.
type Params struct {
	// Search is a literal, case-insensitive substring; no expression language
	Search string
	// Filters maps request filter keys to exact-match values
	Filters map[string]string
	SortBy    string
	SortOrder Direction
	Page      int
	PerPage   int
}

// Spec is the fixed, entity-type-specific shaping contract: which
// columns are searchable, filterable and sortable, and how ownership is
// expressed in SQL. Columns may be table-qualified when the base query
// joins (e.g. "s.user_id" for pages scoped through sites).
type Spec struct {
	// IDColumn is the primary key used as the pagination tie-break
	IDColumn string
	// OwnerColumn expresses the scope predicate
	OwnerColumn string
	// DeletedColumn, when set, excludes soft-deleted rows
	DeletedColumn string
	// SearchColumns are ORed together for substring search
	SearchColumns []string
	// FilterColumns whitelists filter keys; unknown keys are ignored
	FilterColumns map[string]string
	// SortColumns whitelists sort keys; unknown keys fall back to DefaultSort
	SortColumns map[string]string
	// DefaultSort is the column used when no (or an unknown) sort key is given
	DefaultSort string
	// MaxPerPage clamps the page size; zero means DefaultMaxPerPage
	MaxPerPage int
}

// Clause is the shaped SQL, ready to append to an entity's base query.
// Where starts with "WHERE" (or is empty), OrderBy with "ORDER BY".
type Clause struct {
	Where   string
	Args    []interface{}
	OrderBy string
	Limit   int
	Offset  int
	Page    int
	PerPage int
}

// Shape applies scope, search, filters, sort and pagination. The result
// is deterministic for identical inputs against an unchanged store: ties
// on the sort value are broken by primary key ascending.
func (s Spec) Shape(scope policy.Scope, p Params) Clause {
	var conds []string
	var args []interface{}

	next := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if s.DeletedColumn != "" {
		conds = append(conds, s.DeletedColumn+" IS NULL")
	}

	if !scope.All {
		conds = append(conds, s.OwnerColumn+" = "+next())
		args = append(args, scope.OwnerID)
	}

	if p.Search != "" && len(s.SearchColumns) > 0 {
		ors := make([]string, 0, len(s.SearchColumns))
		for _, col := range s.SearchColumns {
			ors = append(ors, "LOWER("+col+") LIKE "+next())
			args = append(args, "%"+strings.ToLower(p.Search)+"%")
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	for key, value := range sortedFilters(p.Filters) {
		col, ok := s.FilterColumns[key]
		if !ok {
			// Unrecognized filter keys are ignored, not errors.
			continue
		}
		conds = append(conds, col+" = "+next())
		args = append(args, value)
	}

	clause := Clause{Args: args}
	if len(conds) > 0 {
		clause.Where = "WHERE " + strings.Join(conds, " AND ")
	}

	sortCol := s.DefaultSort
	if sortCol == "" {
		sortCol = DefaultSortColumn
	}
	if col, ok := s.SortColumns[p.SortBy]; ok {
		sortCol = col
	}
	dir := "DESC"
	if p.SortOrder == Asc {
		dir = "ASC"
	}
	idCol := s.IDColumn
	if idCol == "" {
		idCol = "id"
	}
	clause.OrderBy = fmt.Sprintf("ORDER BY %s %s, %s ASC", sortCol, dir, idCol)

	page := p.Page
	if page < 1 {
		page = 1
	}
	maxPerPage := s.MaxPerPage
	if maxPerPage <= 0 {
		maxPerPage = DefaultMaxPerPage
	}
	perPage := p.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	clause.Page = page
	clause.PerPage = perPage
	clause.Limit = perPage
	clause.Offset = (page - 1) * perPage
	return clause
}

// sortedFilters iterates filters in key order so generated SQL and
// placeholder numbering are stable between calls.
func sortedFilters(filters map[string]string) func(func(string, string) bool) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return func(yield func(string, string) bool) {
		for _, k := range keys {
			if !yield(k, filters[k]) {
				return
			}
		}
	}
}

// Page is one page of a shaped result set
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Number  int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// LastPage returns the number of the final page (at least 1)
func (p Page[T]) LastPage() int {
	if p.Total == 0 || p.PerPage == 0 {
		return 1
	}
	last := int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}
	return last
}

// NewPage assembles a result page from a shaped clause
func NewPage[T any](items []T, total int64, c Clause) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Number: c.Page, PerPage: c.PerPage}
}
