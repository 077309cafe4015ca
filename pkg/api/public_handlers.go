package api

import (
	"net/http"

	"github.com/makersite/makersite/pkg/httputil"
)

// The public surface serves the storefront: published content only,
// no credentials, read only.

func (s *Server) listPublishedSites(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Sites.ListPublished(r.Context(), httputil.ParseParams(r))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) getPublicSite(w http.ResponseWriter, r *http.Request) {
	address, err := httputil.ParsePathString(r, "address")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	tree, err := s.deps.Sites.PublicSite(r.Context(), address)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, tree)
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Products.Search(r.Context(), httputil.ParseParams(r, "price_type", "site_id"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) featuredProducts(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Products.Featured(r.Context(), httputil.ParseParams(r))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) getPublicProduct(w http.ResponseWriter, r *http.Request) {
	slug, err := httputil.ParsePathString(r, "slug")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	product, err := s.deps.Products.PublicGet(r.Context(), slug)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, product)
}

func (s *Server) searchCourses(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Courses.Search(r.Context(), httputil.ParseParams(r, "price_type", "site_id"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) getPublicCourse(w http.ResponseWriter, r *http.Request) {
	slug, err := httputil.ParsePathString(r, "slug")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	outline, err := s.deps.Courses.PublicGet(r.Context(), slug)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, outline)
}
