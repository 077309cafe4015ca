package api

import (
	"net/http"

	"github.com/makersite/makersite/pkg/auth"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/users"
)

func (s *Server) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	user, err := s.deps.Users.Get(r.Context(), actor, actor.ID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, user)
}

func (s *Server) updateCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var in users.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	user, err := s.deps.Users.Update(r.Context(), actor, actor.ID, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, user)
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	tokens, err := s.deps.Auth.ListTokens(r.Context(), actor)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, tokens)
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var in auth.CreateTokenInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	token, plaintext, err := s.deps.Auth.CreateToken(r.Context(), actor, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	// The plaintext token appears in this response and nowhere else
	httputil.WriteCreated(w, map[string]interface{}{
		"token":     token,
		"plaintext": plaintext,
	})
}

func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Auth.RevokeToken(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, map[string]bool{"revoked": true})
}
