package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/birthapp/birthapp-go/internal/crypto"
	"github.com/birthapp/birthapp-go/internal/middleware"
	"github.com/birthapp/birthapp-go/internal/model"
)

// Routes bundles what the router needs.
type Routes struct {
	Tokens         *crypto.TokenService
	BootstrapToken string

	Auth   *AuthHandler
	People *PeopleHandler
	Sync   *SyncHandler
	Health *HealthHandler
}

// NewRouter mounts every endpoint.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", rt.Health.HandleLiveness)
	r.Get("/api/v1/health", rt.Health.HandleDiagnostics)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Post("/api/v1/auth/login", rt.Auth.HandleLogin)
		r.Post("/api/v1/auth/register", rt.Auth.HandleRegister)
		r.Post("/api/v1/auth/logout", rt.Auth.HandleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(rt.Tokens))
		r.Get("/api/v1/auth/me", rt.Auth.HandleMe)

		r.Get("/api/v1/people", rt.People.HandleList)
		r.Get("/api/v1/people.csv", rt.People.HandleExportCSV)
		r.Post("/api/v1/people", rt.People.HandleCreate)
		r.Get("/api/v1/people/{index}", rt.People.HandleGet)
		r.Put("/api/v1/people/{index}", rt.People.HandleUpdate)
		r.Delete("/api/v1/people/{index}", rt.People.HandleDelete)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Post("/api/v1/auth/invite", rt.Auth.HandleInvite)
			r.Put("/api/v1/people", rt.People.HandleReplace)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BootstrapToken(rt.BootstrapToken))
		r.Get("/api/v1/sync", rt.Sync.HandleStatus)
		r.Post("/api/v1/sync", rt.Sync.HandleSync)
	})

	return r
}
