package api

import (
	"net/http"

	"github.com/makersite/makersite/pkg/httputil"
)

// Per-user sub-listings. The services allow only the user themselves or
// an admin through.

func (s *Server) listUserSites(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	page, err := s.deps.Sites.ListFor(r.Context(), actor, id, httputil.ParseParams(r, "published"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) listUserProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	page, err := s.deps.Products.ListFor(r.Context(), actor, id, httputil.ParseParams(r, productFilterKeys...))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) listUserCourses(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	page, err := s.deps.Courses.ListFor(r.Context(), actor, id, httputil.ParseParams(r, courseFilterKeys...))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}
