package api

import (
	"net/http"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/sites"
)

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	page, err := s.deps.Sites.List(r.Context(), actor, httputil.ParseParams(r, "published"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var in sites.SiteInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	site, err := s.deps.Sites.Create(r.Context(), actor, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, site)
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	site, err := s.deps.Sites.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, site)
}

func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in sites.SiteInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	site, err := s.deps.Sites.Update(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, site)
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Sites.Delete(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeSiteDelete, actor, id, "site deleted")
	httputil.WriteData(w, map[string]bool{"deleted": true})
}

func (s *Server) publishSite(w http.ResponseWriter, r *http.Request) {
	s.setSitePublished(w, r, true)
}

func (s *Server) unpublishSite(w http.ResponseWriter, r *http.Request) {
	s.setSitePublished(w, r, false)
}

func (s *Server) setSitePublished(w http.ResponseWriter, r *http.Request, published bool) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var err error
	if published {
		err = s.deps.Sites.Publish(r.Context(), actor, id)
	} else {
		err = s.deps.Sites.Unpublish(r.Context(), actor, id)
	}
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, map[string]bool{"published": published})
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	siteID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	pages, err := s.deps.Sites.ListPages(r.Context(), actor, siteID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, pages)
}

func (s *Server) createPage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	siteID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in sites.PageInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	page, err := s.deps.Sites.CreatePage(r.Context(), actor, siteID, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, page)
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	page, err := s.deps.Sites.GetPage(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, page)
}

func (s *Server) updatePage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in sites.PageInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	page, err := s.deps.Sites.UpdatePage(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, page)
}

func (s *Server) deletePage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Sites.DeletePage(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, map[string]bool{"deleted": true})
}

func (s *Server) listSections(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	pageID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	sections, err := s.deps.Sites.ListSections(r.Context(), actor, pageID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, sections)
}

func (s *Server) createSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	pageID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in sites.SectionInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	section, err := s.deps.Sites.CreateSection(r.Context(), actor, pageID, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, section)
}

func (s *Server) getSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	section, err := s.deps.Sites.GetSection(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, section)
}

func (s *Server) updateSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in sites.SectionInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	section, err := s.deps.Sites.UpdateSection(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, section)
}

func (s *Server) deleteSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Sites.DeleteSection(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, map[string]bool{"deleted": true})
}
