package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every endpoint with its authentication policy: any
// authenticated user may rate, trusted members (or admins) may create and
// update, only admins may delete. Reads are public but personalized when a
// valid token is present.
func NewRouter(movies *MovieHandler, identity *IdentityHandler, health *HealthHandler, mw *Middleware) *mux.Router {
	router := mux.NewRouter()
	router.Use(MetricsMiddleware)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/_health", health).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()

	identityRouter := apiRouter.PathPrefix("/identity").Subrouter()
	identityRouter.HandleFunc("/register", identity.Register).Methods(http.MethodPost)
	identityRouter.HandleFunc("/login", identity.Login).Methods(http.MethodPost)
	identityRouter.HandleFunc("/token", identity.GenerateToken).Methods(http.MethodPost)

	moviesRouter := apiRouter.PathPrefix("/movies").Subrouter()
	moviesRouter.Handle("", mw.OptionalAuthenticate(http.HandlerFunc(movies.GetMovies))).Methods(http.MethodGet)
	moviesRouter.Handle("/{idOrSlug}", mw.OptionalAuthenticate(http.HandlerFunc(movies.GetMovie))).Methods(http.MethodGet)
	moviesRouter.Handle("", mw.Authenticate(mw.RequireTrustedMember(http.HandlerFunc(movies.CreateMovie)))).Methods(http.MethodPost)
	moviesRouter.Handle("/{id}", mw.Authenticate(mw.RequireTrustedMember(http.HandlerFunc(movies.UpdateMovie)))).Methods(http.MethodPut)
	moviesRouter.Handle("/{id}", mw.Authenticate(mw.RequireAdmin(http.HandlerFunc(movies.DeleteMovie)))).Methods(http.MethodDelete)
	moviesRouter.Handle("/{id}/ratings", mw.Authenticate(http.HandlerFunc(movies.RateMovie))).Methods(http.MethodPut)
	moviesRouter.Handle("/{id}/ratings", mw.Authenticate(http.HandlerFunc(movies.DeleteRating))).Methods(http.MethodDelete)

	ratingsRouter := apiRouter.PathPrefix("/ratings").Subrouter()
	ratingsRouter.Handle("/me", mw.Authenticate(http.HandlerFunc(movies.GetUserRatings))).Methods(http.MethodGet)

	return router
}
