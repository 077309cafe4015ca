package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/makersite/makersite/pkg/policy"
)

var productSpec = Spec{
	IDColumn:      "id",
	OwnerColumn:   "user_id",
	DeletedColumn: "deleted_at",
	SearchColumns: []string{"name", "description"},
	FilterColumns: map[string]string{
		"status":     "status",
		"price_type": "price_type",
	},
	SortColumns: map[string]string{
		"name":       "name",
		"price":      "price",
		"created_at": "created_at",
	},
	DefaultSort: "created_at",
	MaxPerPage:  100,
}

func TestShapeScope(t *testing.T) {
	c := productSpec.Shape(policy.Scope{OwnerID: 7}, Params{})
	assert.Equal(t, "WHERE deleted_at IS NULL AND user_id = $1", c.Where)
	assert.Equal(t, []interface{}{int64(7)}, c.Args)

	c = productSpec.Shape(policy.Scope{All: true}, Params{})
	assert.Equal(t, "WHERE deleted_at IS NULL", c.Where)
	assert.Empty(t, c.Args)
}

func TestShapeSearch(t *testing.T) {
	c := productSpec.Shape(policy.Scope{All: true}, Params{Search: "Wool Socks"})
	assert.Equal(t,
		"WHERE deleted_at IS NULL AND (LOWER(name) LIKE $1 OR LOWER(description) LIKE $2)",
		c.Where)
	assert.Equal(t, []interface{}{"%wool socks%", "%wool socks%"}, c.Args)
}

func TestShapeFilters(t *testing.T) {
	c := productSpec.Shape(policy.Scope{OwnerID: 7}, Params{
		Filters: map[string]string{
			"price_type": "1",
			"status":     "1",
			"bogus":      "x", // unknown keys are ignored, not errors
		},
	})
	assert.Equal(t,
		"WHERE deleted_at IS NULL AND user_id = $1 AND price_type = $2 AND status = $3",
		c.Where)
	assert.Equal(t, []interface{}{int64(7), "1", "1"}, c.Args)
}

func TestShapeSort(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		expected string
	}{
		{
			name:     "default sort",
			params:   Params{},
			expected: "ORDER BY created_at DESC, id ASC",
		},
		{
			name:     "explicit ascending sort",
			params:   Params{SortBy: "price", SortOrder: Asc},
			expected: "ORDER BY price ASC, id ASC",
		},
		{
			name:     "unknown sort key falls back without error",
			params:   Params{SortBy: "owner_id; DROP TABLE products"},
			expected: "ORDER BY created_at DESC, id ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := productSpec.Shape(policy.Scope{All: true}, tt.params)
			assert.Equal(t, tt.expected, c.OrderBy)
		})
	}
}

func TestShapePaginationClamps(t *testing.T) {
	c := productSpec.Shape(policy.Scope{All: true}, Params{Page: -3, PerPage: 5000})
	assert.Equal(t, 1, c.Page)
	assert.Equal(t, 100, c.PerPage)
	assert.Equal(t, 0, c.Offset)

	c = productSpec.Shape(policy.Scope{All: true}, Params{Page: 3, PerPage: 20})
	assert.Equal(t, 20, c.Limit)
	assert.Equal(t, 40, c.Offset)

	c = productSpec.Shape(policy.Scope{All: true}, Params{})
	assert.Equal(t, DefaultPerPage, c.PerPage)
}

func TestShapeIsDeterministic(t *testing.T) {
	params := Params{
		Search: "socks",
		Filters: map[string]string{
			"status":     "1",
			"price_type": "3",
		},
		SortBy: "name",
		Page:   2,
	}
	first := productSpec.Shape(policy.Scope{OwnerID: 9}, params)
	for i := 0; i < 20; i++ {
		again := productSpec.Shape(policy.Scope{OwnerID: 9}, params)
		assert.Equal(t, first, again)
	}
}

func TestPageLastPage(t *testing.T) {
	tests := []struct {
		total    int64
		perPage  int
		expected int
	}{
		{0, 15, 1},
		{1, 15, 1},
		{15, 15, 1},
		{16, 15, 2},
		{45, 15, 3},
		{46, 15, 4},
	}
	for _, tt := range tests {
		p := Page[int]{Total: tt.total, PerPage: tt.perPage}
		assert.Equal(t, tt.expected, p.LastPage(), "total=%d per_page=%d", tt.total, tt.perPage)
	}
}

func TestNewPageNeverNilItems(t *testing.T) {
	p := NewPage[string](nil, 0, Clause{Page: 1, PerPage: 15})
	assert.NotNil(t, p.Items)
	assert.Len(t, p.Items, 0)
}
