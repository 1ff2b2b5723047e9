package api

import (
	"fmt"
	"ms-groups/internal/logger"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every endpoint of h. Batch routes need a Store and the
// stream route needs an Emitter.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Logger))

	r.Get("/healthz", h.Healthz)

	r.Route("/pages/{pageID}", func(r chi.Router) {
		r.Get("/groups", h.RenderGroups)
		if h.Emitter != nil {
			r.Get("/groups/stream", h.StreamGroups)
		}
		r.Delete("/", h.DeletePage)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/pages/{pageID}/dispatch", h.Dispatch)
		if h.Store != nil {
			r.Get("/pages/{pageID}/batches", h.ListPageBatches)
			r.Get("/batches/{batchID}", h.GetBatch)
		}
	})

	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), fmt.Sprint(time.Since(start).Round(time.Microsecond)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
