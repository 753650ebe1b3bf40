package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/media"
	"github.com/trexinity/another/internal/catalog/views"
	"github.com/trexinity/another/internal/docstore"
	"github.com/trexinity/another/pkg/auth"
	apperrors "github.com/trexinity/another/pkg/errors"
)

type titleResponse struct {
	Title       domain.Title `json:"title"`
	PlaybackURL string       `json:"playbackUrl"`
	Liked       bool         `json:"liked"`
	InWatchlist bool         `json:"inWatchlist"`
}

func titleID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if err := docstore.ValidateSegment(id); err != nil {
		return "", apperrors.BadRequest("invalid title id")
	}
	return id, nil
}

// getCatalog returns the snapshot; refresh=1 reloads it from the store first.
func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	titles := h.Catalog.Snapshot()
	if r.URL.Query().Get("refresh") == "1" {
		loaded, err := h.Catalog.Load(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		titles = loaded
	}

	if t := r.URL.Query().Get("type"); t != "" {
		tt := domain.TitleType(t)
		if tt != domain.TypeMovie && tt != domain.TypeSeries {
			WriteError(w, r, apperrors.Validation("type", "must be one of: movie series"))
			return
		}
		titles = views.OfType(titles, tt)
	}

	if titles == nil {
		titles = []domain.Title{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

func (h *Handler) getHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, views.BuildHome(h.Catalog.Snapshot(), h.Sizes))
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"results": views.Search(h.Catalog.Snapshot(), r.URL.Query().Get("q")),
	})
}

func (h *Handler) getGenres(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"genres": views.GenreStats(h.Catalog.Snapshot())})
}

func (h *Handler) getLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": views.ByLanguage(h.Catalog.Snapshot())})
}

// getTitle serves a title from the snapshot, falling back to the store for
// titles published since the last load.
func (h *Handler) getTitle(w http.ResponseWriter, r *http.Request) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	title, ok := h.Catalog.Get(id)
	if !ok {
		title, err = h.Catalog.Fetch(r.Context(), id)
		if err != nil {
			WriteError(w, r, err)
			return
		}
	}

	resp := titleResponse{
		Title:       title,
		PlaybackURL: media.PlaybackURL(title.VideoSource, title.VideoURL),
	}
	if session, ok := auth.SessionFromContext(r.Context()); ok {
		resp.Liked = title.LikedBy(session.UID)
		inList, err := h.Watchlists.Contains(r.Context(), session.UID, id)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		resp.InWatchlist = inList
	}
	writeJSON(w, http.StatusOK, resp)
}

// incrementView accepts the view and counts it in the background.
func (h *Handler) incrementView(w http.ResponseWriter, r *http.Request) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.Engagement.IncrementViewAsync(r.Context(), id)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	session, _ := auth.SessionFromContext(r.Context())

	res, err := h.Engagement.ToggleLike(r.Context(), id, session.UID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
