package handler

import (
	"context"
	"net/http"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/views"
	"github.com/trexinity/another/pkg/auth"
)

type listResponse struct {
	IDs    []string       `json:"ids"`
	Titles []domain.Title `json:"titles"`
}

type progressRequest struct {
	Progress *float64 `json:"progress"`
	Duration *float64 `json:"duration"`
}

func session(r *http.Request) domain.UserSession {
	s, _ := auth.SessionFromContext(r.Context())
	return s
}

// list pairs stored ids with the titles still in the catalog.
func (h *Handler) list(ids []string) listResponse {
	if ids == nil {
		ids = []string{}
	}
	return listResponse{IDs: ids, Titles: views.WatchlistView(h.Catalog.Snapshot(), ids)}
}

// getMe creates the profile on first sight and returns the session with
// favorites.
func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	identity := session(r)
	profile, err := h.Profiles.EnsureProfile(r.Context(), identity)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	full, err := h.Profiles.Session(r.Context(), identity)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": full, "profile": profile})
}

func (h *Handler) getWatchlist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Watchlists.List(r.Context(), session(r).UID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.list(ids))
}

func (h *Handler) addToWatchlist(w http.ResponseWriter, r *http.Request) {
	h.mutateWatchlist(w, r, h.Watchlists.Add)
}

func (h *Handler) removeFromWatchlist(w http.ResponseWriter, r *http.Request) {
	h.mutateWatchlist(w, r, h.Watchlists.Remove)
}

func (h *Handler) mutateWatchlist(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, uid, titleID string) error) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	uid := session(r).UID
	if err := op(r.Context(), uid, id); err != nil {
		WriteError(w, r, err)
		return
	}
	h.getWatchlist(w, r)
}

func (h *Handler) clearWatchlist(w http.ResponseWriter, r *http.Request) {
	if err := h.Watchlists.Clear(r.Context(), session(r).UID); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getFavorites(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Profiles.Favorites(r.Context(), session(r).UID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.list(ids))
}

func (h *Handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	h.mutateFavorites(w, r, h.Profiles.AddFavorite)
}

func (h *Handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	h.mutateFavorites(w, r, h.Profiles.RemoveFavorite)
}

func (h *Handler) mutateFavorites(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, uid, titleID string) ([]string, error)) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	ids, err := op(r.Context(), session(r).UID, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.list(ids))
}

func (h *Handler) recordProgress(w http.ResponseWriter, r *http.Request) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.Progress == nil {
		WriteError(w, r, validationRequired("progress"))
		return
	}
	duration := 0.0
	if req.Duration != nil {
		duration = *req.Duration
	}

	p, err := h.Profiles.RecordProgress(r.Context(), session(r).UID, id, *req.Progress, duration)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) clearProgress(w http.ResponseWriter, r *http.Request) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.Profiles.ClearProgress(r.Context(), session(r).UID, id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) continueWatching(w http.ResponseWriter, r *http.Request) {
	progress, err := h.Profiles.Progress(r.Context(), session(r).UID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": views.ContinueWatching(h.Catalog.Snapshot(), progress),
	})
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Profiles.History(r.Context(), session(r).UID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.WatchHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}
