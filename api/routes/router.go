package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Marlon-Urena/userAccountService/api/controllers"
	"github.com/Marlon-Urena/userAccountService/api/middleware"
	identitysvc "github.com/Marlon-Urena/userAccountService/internal/identity"
	"github.com/Marlon-Urena/userAccountService/pkg/logger"
	"github.com/Marlon-Urena/userAccountService/pkg/metrics"
)

type Dependencies struct {
	Logger   *logger.Logger
	Verifier *identitysvc.Verifier
	Resolver *identitysvc.Resolver
	Accounts *controllers.AccountsController
	Health   *controllers.HealthController
}

// New assembles the HTTP surface. Registration and availability checks
// are public; everything under /api/v1/user requires a verified
// credential.
func New(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(metrics.HTTP())
	r.Use(middleware.CORS())

	r.Get("/health/live", deps.Health.Live)
	r.Get("/health/ready", deps.Health.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", deps.Accounts.Register)
		r.Post("/users/email-availability", deps.Accounts.EmailAvailability)
		r.Post("/users/username-availability", deps.Accounts.UsernameAvailability)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Verifier, deps.Resolver, deps.Logger))

			r.Get("/user", deps.Accounts.CurrentAccount)
			r.Put("/user", deps.Accounts.UpdateAccount)
			r.Put("/user/personal-info", deps.Accounts.UpdatePersonalInfo)
			r.Patch("/user/email", deps.Accounts.ChangeEmail)
			r.Patch("/user/username", deps.Accounts.ChangeUsername)
			r.Patch("/user/profile-photo", deps.Accounts.ChangeAvatar)
			r.Delete("/user", deps.Accounts.DeleteAccount)

			r.Get("/contacts", deps.Accounts.Contacts)
		})
	})

	return r
}
