// Package devserver is a small sqlite-backed implementation of the favorites
// REST API, used by `favsync serve` and by tests.
package devserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/liubaotong/favsync/internal/logging"
)

// Router builds the API routes over store.
func Router(store *Store) http.Handler {
	h := NewHandlers(store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	// Browser extensions call from their own origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", h.HandleListFavorites)
			r.Post("/", h.HandleCreateFavorite)
			r.Put("/{id}", h.HandleUpdateFavorite)
			r.Delete("/{id}", h.HandleDeleteFavorite)
		})

		for _, c := range []Catalog{Categories, Tags} {
			ch := catalogHandlers{Handlers: h, catalog: c}
			r.Route("/"+string(c), func(r chi.Router) {
				r.Get("/", ch.list)
				r.Post("/", ch.create)
				r.Get("/{id}", ch.get)
				r.Put("/{id}", ch.rename)
				r.Delete("/{id}", ch.remove)
				if c == Tags {
					r.Get("/{name}/favorites", h.HandleFavoritesByTag)
				}
			})
		}
	})
	return r
}

func New(addr string, store *Store) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(store),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Info("server listening", map[string]interface{}{"addr": addr})
	return srv
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Get().WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
			"remote":      r.RemoteAddr,
		}).Info("request")
	})
}
