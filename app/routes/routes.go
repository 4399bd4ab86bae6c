// Package routes builds the HTTP handler serving the site, its JSON API and
// the operational endpoints.
package routes

import (
	"fmt"
	"net/http"
	"time"

	"blogfeed/app/cache"
	"blogfeed/app/controllers"
	"blogfeed/app/media"
	"blogfeed/app/middleware"
	"blogfeed/app/monitoring"
	"blogfeed/app/repositories"
	"blogfeed/app/services"
	"blogfeed/app/views"

	"github.com/gorilla/mux"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	Store *repositories.Store
	// Cache serves the global feed. Nil disables caching.
	Cache         cache.Cache
	Media         *media.Store
	IndexCacheTTL time.Duration
	PageSize      int
	MaxUploadSize int64
	SessionTTL    time.Duration
	SecureCookies bool
}

// SetupRoutes wires services and controllers and returns the site handler.
func SetupRoutes(deps Deps) (http.Handler, error) {
	renderer, err := views.New()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	graph := services.NewSocialGraph(deps.Store.Follows)
	users := services.NewUserService(deps.Store, deps.Media, deps.SessionTTL)
	feeds := services.NewFeedComposer(deps.Store, graph, deps.Cache, deps.IndexCacheTTL, deps.PageSize)
	posts := services.NewPostService(deps.Store, deps.Media)
	groups := services.NewGroupService(deps.Store.Groups)
	comments := services.NewCommentService(deps.Store)

	rs := controllers.NewResponder(renderer)
	feedController := controllers.NewFeedController(rs, feeds)
	postController := controllers.NewPostController(rs, posts, groups, deps.MaxUploadSize)
	commentController := controllers.NewCommentController(rs, comments)
	followController := controllers.NewFollowController(rs, users, graph)
	authController := controllers.NewAuthController(rs, users, deps.SecureCookies)

	router := mux.NewRouter()
	router.StrictSlash(true)
	router.Use(middleware.Metrics)
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Authenticate(users))
	router.NotFoundHandler = middleware.Authenticate(users)(http.HandlerFunc(rs.NotFound))

	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireLogin(h)
	}

	router.Handle("/metrics", monitoring.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/media/").Handler(http.StripPrefix("/media", deps.Media.Handler())).Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/auth/signup/", authController.Signup).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/auth/login/", authController.Login).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/auth/logout/", authController.Logout).Methods(http.MethodGet, http.MethodPost)

	// The API mirrors the read routes and must be registered before the
	// username patterns, which would otherwise capture "api".
	for _, prefix := range []string{"/api", ""} {
		router.HandleFunc(prefix+"/", feedController.Index).Methods(http.MethodGet)
		router.HandleFunc(prefix+"/group/{slug}/", feedController.Group).Methods(http.MethodGet)
		router.Handle(prefix+"/follow/", protected(feedController.Follow)).Methods(http.MethodGet)
		if prefix == "" {
			router.Handle("/new/", protected(postController.New)).Methods(http.MethodGet, http.MethodPost)
		}
		router.HandleFunc(prefix+"/{username}/", feedController.Profile).Methods(http.MethodGet)
		router.HandleFunc(prefix+"/{username}/{post_id:[0-9]+}/", feedController.Post).Methods(http.MethodGet)
	}

	router.Handle("/{username}/follow/", protected(followController.Follow)).Methods(http.MethodGet)
	router.Handle("/{username}/unfollow/", protected(followController.Unfollow)).Methods(http.MethodGet)
	router.Handle("/{username}/{post_id:[0-9]+}/edit/", protected(postController.Edit)).Methods(http.MethodGet, http.MethodPost)
	router.Handle("/{username}/{post_id:[0-9]+}/comment/", protected(commentController.Add)).Methods(http.MethodPost)

	errorPage := middleware.Authenticate(users)(http.HandlerFunc(rs.ServerError))
	return middleware.Logger(middleware.Recoverer(errorPage)(router)), nil
}
