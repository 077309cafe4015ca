package api

import (
	"context"
	"net/http"
	"time"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/users"
)

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	stats, err := s.deps.Users.Stats(r.Context(), actor)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	body := map[string]interface{}{"users": stats}

	entities := map[string]int64{}
	count := func(name string, fn func(context.Context, policy.Actor) (int64, error)) {
		n, err := fn(r.Context(), actor)
		if err != nil {
			s.deps.Logger.WithError(err).WithField("entity", name).Warn("failed to count entities for dashboard")
			return
		}
		entities[name] = n
	}
	if s.deps.Sites != nil {
		count("sites", s.deps.Sites.Count)
	}
	if s.deps.Products != nil {
		count("products", s.deps.Products.Count)
	}
	if s.deps.Courses != nil {
		count("courses", s.deps.Courses.Count)
	}
	if s.deps.Media != nil {
		count("media", s.deps.Media.Count)
	}
	body["entities"] = entities

	if s.deps.Audit != nil {
		recent, err := s.deps.Audit.Search(r.Context(), audit.SearchFilter{Limit: 10})
		if err == nil {
			body["recent_activity"] = recent
		}
	}
	httputil.WriteData(w, body)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	page, err := s.deps.Users.List(r.Context(), actor, httputil.ParseParams(r, "role", "status"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var in users.CreateInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	user, err := s.deps.Users.Create(r.Context(), actor, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeUserCreate, actor, user.ID, "user created")
	httputil.WriteCreated(w, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := s.deps.Users.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in users.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	user, err := s.deps.Users.Update(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeUserUpdate, actor, id, "user updated")
	httputil.WriteData(w, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Users.Delete(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeUserDelete, actor, id, "user deleted")
	httputil.WriteData(w, map[string]bool{"deleted": true})
}

func (s *Server) banUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Users.Ban(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeUserBan, actor, id, "user banned")
	httputil.WriteData(w, map[string]bool{"banned": true})
}

func (s *Server) unbanUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Users.Unban(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeUserUnban, actor, id, "user unbanned")
	httputil.WriteData(w, map[string]bool{"banned": false})
}

func (s *Server) impersonateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	token, expiresAt, err := s.deps.Auth.Impersonate(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeImpersonateStart, actor, id, "impersonation token issued")
	httputil.WriteData(w, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (s *Server) searchAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		httputil.WriteData(w, []interface{}{})
		return
	}

	filter := audit.SearchFilter{
		Type:  audit.EventType(r.URL.Query().Get("type")),
		Limit: httputil.ParseQueryInt(r, "limit", 0),
	}
	if actorID := httputil.ParseQueryInt(r, "actor_id", 0); actorID > 0 {
		filter.ActorID = int64(actorID)
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be RFC3339")
			return
		}
		filter.Since = &t
	}

	events, err := s.deps.Audit.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	httputil.WriteData(w, events)
}
