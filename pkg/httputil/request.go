package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/makersite/makersite/pkg/query"
)

// ParseJSON decodes the request body into dest
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes the body and writes a 400 on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathInt64 extracts an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError extracts an int64 path parameter, writing a 400
// on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// ParseQueryInt parses an integer query parameter with a default
func ParseQueryInt(r *http.Request, key string, def int) int {
	str := r.URL.Query().Get(key)
	if str == "" {
		return def
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return def
	}
	return val
}

// ParseParams assembles shaping parameters from the query string.
// filterKeys whitelists which query parameters become entity filters;
// everything else is ignored.
func ParseParams(r *http.Request, filterKeys ...string) query.Params {
	q := r.URL.Query()

	order := query.Direction(q.Get("sort_order"))
	if order != query.Asc && order != query.Desc {
		order = ""
	}

	var filters map[string]string
	for _, key := range filterKeys {
		if v := q.Get(key); v != "" {
			if filters == nil {
				filters = make(map[string]string)
			}
			filters[key] = v
		}
	}

	return query.Params{
		Search:    q.Get("search"),
		Filters:   filters,
		SortBy:    q.Get("sort_by"),
		SortOrder: order,
		Page:      ParseQueryInt(r, "page", 0),
		PerPage:   ParseQueryInt(r, "per_page", 0),
	}
}
