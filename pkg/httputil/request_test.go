package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makersite/makersite/pkg/query"
)

func TestParseJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/sites", strings.NewReader(`{"name":"My Site"}`))
	var dest struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(r, &dest))
	assert.Equal(t, "My Site", dest.Name)

	r = httptest.NewRequest("POST", "/sites", strings.NewReader(`{not json`))
	assert.Error(t, ParseJSON(r, &dest))
}

func TestParsePathInt64(t *testing.T) {
	r := httptest.NewRequest("GET", "/sites/42", nil)
	r = mux.SetURLVars(r, map[string]string{"id": "42"})

	id, err := ParsePathInt64(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	r = mux.SetURLVars(r, map[string]string{"id": "abc"})
	_, err = ParsePathInt64(r, "id")
	assert.Error(t, err)
}

func TestParseParams(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/products?page=2&per_page=25&sort_by=price&sort_order=desc&search=mug&published=true&ignored=x", nil)

	p := ParseParams(r, "published", "featured")
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 25, p.PerPage)
	assert.Equal(t, "price", p.SortBy)
	assert.Equal(t, query.Desc, p.SortOrder)
	assert.Equal(t, "mug", p.Search)
	assert.Equal(t, map[string]string{"published": "true"}, p.Filters)
}

func TestParseParamsInvalidSortOrder(t *testing.T) {
	r := httptest.NewRequest("GET", "/products?sort_order=sideways", nil)
	p := ParseParams(r)
	assert.Empty(t, p.SortOrder)
	assert.Nil(t, p.Filters)
}
