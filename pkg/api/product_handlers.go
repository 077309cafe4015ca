package api

import (
	"net/http"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/products"
)

// productFilterKeys whitelists the entity filters accepted on listings
var productFilterKeys = []string{"price_type", "published", "featured", "site_id"}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	page, err := s.deps.Products.List(r.Context(), actor, httputil.ParseParams(r, productFilterKeys...))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var in products.Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	product, err := s.deps.Products.Create(r.Context(), actor, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, product)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	product, err := s.deps.Products.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, product)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in products.Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	product, err := s.deps.Products.Update(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, product)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Products.Delete(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeProductDelete, actor, id, "product deleted")
	httputil.WriteData(w, map[string]bool{"deleted": true})
}
