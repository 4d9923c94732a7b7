// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"oikos-server/internal/auth"
	"oikos-server/internal/common/config"
	"oikos-server/internal/common/logger"
)

// Handlers groups the route handlers the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Property *PropertyHandler
	Wizard   *WizardHandler
}

// NewRouter mounts the REST surface. Listings are publicly readable; every
// mutation requires a Bearer token. Wizard sessions accept anonymous opens
// because registration itself runs through a wizard.
func NewRouter(h Handlers, tokens *auth.TokenIssuer, cfg config.ServerConfig, log logger.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestLogger(log))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth endpoints, no token required.
	router.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")
	router.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	router.HandleFunc("/auth/verify", h.Auth.Verify).Methods("POST")
	router.HandleFunc("/auth/resend-code", h.Auth.ResendCode).Methods("POST")
	router.HandleFunc("/auth/forgot-password", h.Auth.ForgotPassword).Methods("POST")
	router.HandleFunc("/auth/reset-password", h.Auth.ResetPassword).Methods("POST")

	// Public catalog reads. Search is registered before the {id} route so
	// "search" never resolves as a property id.
	router.HandleFunc("/properties/search", h.Property.Search).Methods("GET")
	router.HandleFunc("/properties", h.Property.List).Methods("GET")
	router.HandleFunc("/properties/{id}", h.Property.Get).Methods("GET")

	// Owner-gated mutation.
	mutations := router.PathPrefix("/properties").Subrouter()
	mutations.Use(AuthMiddleware(tokens, log))
	mutations.HandleFunc("", h.Property.Create).Methods("POST")
	mutations.HandleFunc("/{id}", h.Property.Update).Methods("PUT")
	mutations.HandleFunc("/{id}", h.Property.Delete).Methods("DELETE")

	// Wizard session API. Auth is optional at open; flows that need an
	// account reject at submit.
	wizards := router.PathPrefix("/wizards").Subrouter()
	wizards.Use(OptionalAuth(tokens))
	wizards.HandleFunc("/{flow}", h.Wizard.Open).Methods("POST")
	wizards.HandleFunc("/{id}", h.Wizard.Get).Methods("GET")
	wizards.HandleFunc("/{id}/fields", h.Wizard.SetFields).Methods("PATCH")
	wizards.HandleFunc("/{id}/next", h.Wizard.Next).Methods("POST")
	wizards.HandleFunc("/{id}/prev", h.Wizard.Prev).Methods("POST")
	wizards.HandleFunc("/{id}/jump", h.Wizard.Jump).Methods("POST")
	wizards.HandleFunc("/{id}/banner", h.Wizard.DismissBanner).Methods("DELETE")
	wizards.HandleFunc("/{id}/capture", h.Wizard.AcquireCapture).Methods("POST")
	wizards.HandleFunc("/{id}/capture/frame", h.Wizard.CaptureFrame).Methods("POST")
	wizards.HandleFunc("/{id}/capture", h.Wizard.ReleaseCapture).Methods("DELETE")
	wizards.HandleFunc("/{id}", h.Wizard.Close).Methods("DELETE")

	origins, credentials := corsPolicy(cfg)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: credentials,
	})
	return corsHandler.Handler(router)
}

// corsPolicy derives the origin list and credentials flag. Browsers reject a
// wildcard origin combined with credentials, so the open fallback must not
// allow them.
func corsPolicy(cfg config.ServerConfig) ([]string, bool) {
	if len(cfg.AllowedOrigins) == 0 {
		return []string{"*"}, false
	}
	return cfg.AllowedOrigins, true
}
