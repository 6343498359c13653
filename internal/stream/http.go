package stream

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tOgg1/nostrfeed/internal/metrics"
	"github.com/tOgg1/nostrfeed/internal/models"
)

const maxFeedLimit = 500

type errorResponse struct {
	Error string `json:"error"`
}

// Router serves /healthz, /metrics and /feed.
func (r *Runner) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", r.handleHealth)
	router.Method(http.MethodGet, "/metrics", metrics.Handler(r.cfg.Gatherer))
	router.Get("/feed", r.handleFeed)
	return router
}

func (r *Runner) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, r.Status())
}

// handleFeed returns cached posts newest first. ?limit=N caps the count.
func (r *Runner) handleFeed(w http.ResponseWriter, req *http.Request) {
	limit := 50
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	posts, err := r.feed.CachedPosts(req.Context())
	if err != nil {
		r.logger.Error().Err(err).Msg("load cached posts")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "cache unavailable"})
		return
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
