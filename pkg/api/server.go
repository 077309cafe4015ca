// Package api binds the domain services to HTTP: routing, request
// decoding and the response envelope.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/auth"
	"github.com/makersite/makersite/pkg/contextkeys"
	"github.com/makersite/makersite/pkg/courses"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/media"
	"github.com/makersite/makersite/pkg/middleware"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/products"
	"github.com/makersite/makersite/pkg/sites"
	"github.com/makersite/makersite/pkg/users"
)

// Deps are the collaborators the server routes requests to. Audit and
// Metrics may be nil; the affected surfaces degrade quietly.
type Deps struct {
	Users    *users.Service
	Sites    *sites.Service
	Products *products.Service
	Courses  *courses.Service
	Media    *media.Service
	Auth     *auth.Service
	Audit    audit.Recorder
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Server is the HTTP API server
type Server struct {
	router *mux.Router
	deps   Deps
}

// NewServer creates the server and wires all routes. authn wraps the
// authenticated subtree; extra middleware (request ids, logging, rate
// limits) is applied by the caller around the whole server.
func NewServer(deps Deps, authn *middleware.Auth) *Server {
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes(authn)
	return s
}

func (s *Server) setupRoutes(authn *middleware.Auth) {
	s.router.HandleFunc("/healthz", s.health).Methods("GET")
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods("GET")
	}

	// Public storefront surface, no credentials required
	public := s.router.PathPrefix("/api/v1/public").Subrouter()
	public.HandleFunc("/sites", s.listPublishedSites).Methods("GET")
	public.HandleFunc("/sites/{address}", s.getPublicSite).Methods("GET")
	public.HandleFunc("/products", s.searchProducts).Methods("GET")
	public.HandleFunc("/products/featured", s.featuredProducts).Methods("GET")
	public.HandleFunc("/products/{slug}", s.getPublicProduct).Methods("GET")
	public.HandleFunc("/courses", s.searchCourses).Methods("GET")
	public.HandleFunc("/courses/{slug}", s.getPublicCourse).Methods("GET")

	// Everything below requires a valid bearer credential
	authed := s.router.PathPrefix("/api/v1").Subrouter()
	authed.Use(authn.Handler)

	authed.HandleFunc("/me", s.getCurrentUser).Methods("GET")
	authed.HandleFunc("/me", s.updateCurrentUser).Methods("PUT")

	authed.HandleFunc("/tokens", s.listTokens).Methods("GET")
	authed.HandleFunc("/tokens", s.createToken).Methods("POST")
	authed.HandleFunc("/tokens/{id}", s.revokeToken).Methods("DELETE")

	authed.HandleFunc("/users/{id}/sites", s.listUserSites).Methods("GET")
	authed.HandleFunc("/users/{id}/products", s.listUserProducts).Methods("GET")
	authed.HandleFunc("/users/{id}/courses", s.listUserCourses).Methods("GET")

	authed.HandleFunc("/sites", s.listSites).Methods("GET")
	authed.HandleFunc("/sites", s.createSite).Methods("POST")
	authed.HandleFunc("/sites/{id}", s.getSite).Methods("GET")
	authed.HandleFunc("/sites/{id}", s.updateSite).Methods("PUT")
	authed.HandleFunc("/sites/{id}", s.deleteSite).Methods("DELETE")
	authed.HandleFunc("/sites/{id}/publish", s.publishSite).Methods("POST")
	authed.HandleFunc("/sites/{id}/unpublish", s.unpublishSite).Methods("POST")
	authed.HandleFunc("/sites/{id}/pages", s.listPages).Methods("GET")
	authed.HandleFunc("/sites/{id}/pages", s.createPage).Methods("POST")
	authed.HandleFunc("/pages/{id}", s.getPage).Methods("GET")
	authed.HandleFunc("/pages/{id}", s.updatePage).Methods("PUT")
	authed.HandleFunc("/pages/{id}", s.deletePage).Methods("DELETE")
	authed.HandleFunc("/pages/{id}/sections", s.listSections).Methods("GET")
	authed.HandleFunc("/pages/{id}/sections", s.createSection).Methods("POST")
	authed.HandleFunc("/sections/{id}", s.getSection).Methods("GET")
	authed.HandleFunc("/sections/{id}", s.updateSection).Methods("PUT")
	authed.HandleFunc("/sections/{id}", s.deleteSection).Methods("DELETE")

	authed.HandleFunc("/products", s.listProducts).Methods("GET")
	authed.HandleFunc("/products", s.createProduct).Methods("POST")
	authed.HandleFunc("/products/{id}", s.getProduct).Methods("GET")
	authed.HandleFunc("/products/{id}", s.updateProduct).Methods("PUT")
	authed.HandleFunc("/products/{id}", s.deleteProduct).Methods("DELETE")

	authed.HandleFunc("/courses", s.listCourses).Methods("GET")
	authed.HandleFunc("/courses", s.createCourse).Methods("POST")
	authed.HandleFunc("/courses/{id}", s.getCourse).Methods("GET")
	authed.HandleFunc("/courses/{id}", s.updateCourse).Methods("PUT")
	authed.HandleFunc("/courses/{id}", s.deleteCourse).Methods("DELETE")
	authed.HandleFunc("/courses/{id}/lessons", s.listLessons).Methods("GET")
	authed.HandleFunc("/courses/{id}/lessons", s.createLesson).Methods("POST")
	authed.HandleFunc("/lessons/{id}", s.getLesson).Methods("GET")
	authed.HandleFunc("/lessons/{id}", s.updateLesson).Methods("PUT")
	authed.HandleFunc("/lessons/{id}", s.deleteLesson).Methods("DELETE")

	authed.HandleFunc("/courses/{id}/enroll", s.enroll).Methods("POST")
	authed.HandleFunc("/courses/{id}/enroll", s.unenroll).Methods("DELETE")
	authed.HandleFunc("/courses/{id}/progress", s.courseProgress).Methods("GET")
	authed.HandleFunc("/courses/{id}/lessons/{lessonID}/complete", s.completeLesson).Methods("POST")
	authed.HandleFunc("/enrollments", s.myEnrollments).Methods("GET")

	authed.HandleFunc("/media", s.listMedia).Methods("GET")
	authed.HandleFunc("/media", s.uploadMedia).Methods("POST")
	authed.HandleFunc("/media/bulk", s.bulkUploadMedia).Methods("POST")
	authed.HandleFunc("/media/{id}", s.getMedia).Methods("GET")
	authed.HandleFunc("/media/{id}/tags", s.updateMediaTags).Methods("PUT")
	authed.HandleFunc("/media/{id}", s.deleteMedia).Methods("DELETE")

	// Admin panel
	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/dashboard", s.dashboard).Methods("GET")
	admin.HandleFunc("/users", s.listUsers).Methods("GET")
	admin.HandleFunc("/users", s.createUser).Methods("POST")
	admin.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	admin.HandleFunc("/users/{id}", s.updateUser).Methods("PUT")
	admin.HandleFunc("/users/{id}", s.deleteUser).Methods("DELETE")
	admin.HandleFunc("/users/{id}/ban", s.banUser).Methods("POST")
	admin.HandleFunc("/users/{id}/unban", s.unbanUser).Methods("POST")
	admin.HandleFunc("/users/{id}/impersonate", s.impersonateUser).Methods("POST")
	admin.HandleFunc("/audit", s.searchAudit).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, map[string]string{"status": "ok"})
}

// actor extracts the authenticated actor. The auth middleware
// guarantees its presence on authed routes; a miss is a wiring bug.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	actor, ok := contextkeys.ActorFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return policy.Actor{}, false
	}
	return actor, true
}

// record writes an audit event, best effort
func (s *Server) record(r *http.Request, eventType audit.EventType, actor policy.Actor, targetID int64, message string) {
	if s.deps.Audit == nil {
		return
	}
	event := audit.Event{
		Type:    eventType,
		ActorID: actor.ID,
		Message: message,
	}
	if targetID != 0 {
		event.TargetID = &targetID
	}
	if impersonator := contextkeys.ImpersonatorFrom(r.Context()); impersonator != 0 {
		event.Details = map[string]interface{}{"impersonated_by": impersonator}
	}
	_ = s.deps.Audit.Record(r.Context(), event)
}
