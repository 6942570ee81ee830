// Package admin exposes the account and history management surface over
// HTTP. It is meant for an operator's own machine or network, so auth is
// a single optional basic-auth credential rather than a user system.
package admin

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"
)

// NewRouter registers the admin routes. When user and passwordHash are both
// set, every route except the health check requires basic auth; the stored
// credential is a bcrypt hash so the plaintext password never sits in
// configuration.
func NewRouter(h *Handler, user, passwordHash string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if user != "" && passwordHash != "" {
			r.Use(basicAuth(user, passwordHash))
		}

		r.Get("/accounts", h.handleListAccounts)
		r.Post("/accounts", h.handleEnrollAccount)
		r.Delete("/accounts/{id}", h.handleRemoveAccount)
		r.Get("/history", h.handleHistory)
	})

	return r
}

func basicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
