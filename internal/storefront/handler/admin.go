package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/studio"
	apperrors "github.com/trexinity/another/pkg/errors"
)

const multipartMemory = 32 << 20

func validationRequired(field string) error {
	return apperrors.Validation(field, "is required")
}

// publishTitle accepts multipart/form-data with thumbnail and video files,
// or a JSON form that references an existing thumbnailUrl.
func (h *Handler) publishTitle(w http.ResponseWriter, r *http.Request) {
	var (
		form studio.PublishForm
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if h.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, 2*h.MaxUploadBytes+multipartMemory)
		}
		form, err = parseMultipartForm(r)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
	} else {
		err = decodeJSON(r, &form)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	title, err := h.Studio.Publish(r.Context(), session(r), form)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

func parseMultipartForm(r *http.Request) (studio.PublishForm, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return studio.PublishForm{}, apperrors.BadRequest("malformed multipart form")
	}

	form := studio.PublishForm{
		Title:        strings.TrimSpace(r.FormValue("title")),
		Description:  strings.TrimSpace(r.FormValue("description")),
		Genre:        strings.TrimSpace(r.FormValue("genre")),
		Language:     strings.TrimSpace(r.FormValue("language")),
		Director:     strings.TrimSpace(r.FormValue("director")),
		Cast:         strings.TrimSpace(r.FormValue("cast")),
		Type:         domain.TitleType(r.FormValue("type")),
		VideoSource:  domain.VideoSource(r.FormValue("videoSource")),
		VideoURL:     strings.TrimSpace(r.FormValue("videoUrl")),
		ThumbnailURL: strings.TrimSpace(r.FormValue("thumbnailUrl")),
	}

	var err error
	if form.Year, err = optionalInt(r, "year"); err != nil {
		return form, err
	}
	if form.Duration, err = optionalInt(r, "duration"); err != nil {
		return form, err
	}
	if v := r.FormValue("rating"); v != "" {
		rating, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return form, apperrors.Validation("rating", "must be a number")
		}
		form.Rating = &rating
	}
	if v := r.FormValue("episodes"); v != "" {
		if err := json.Unmarshal([]byte(v), &form.Episodes); err != nil {
			return form, apperrors.Validation("episodes", "must be a JSON array")
		}
	}

	if form.Thumbnail, err = formFile(r, "thumbnail"); err != nil {
		return form, err
	}
	if form.Video, err = formFile(r, "video"); err != nil {
		return form, err
	}
	return form, nil
}

func optionalInt(r *http.Request, field string) (*int, error) {
	v := r.FormValue(field)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperrors.Validation(field, "must be a whole number")
	}
	return &n, nil
}

// formFile returns the uploaded file as an Asset, or nil when absent. The
// file stays open until the multipart form is removed.
func formFile(r *http.Request, field string) (*studio.Asset, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.BadRequest("unreadable " + field + " upload")
	}
	return assetFrom(file, header), nil
}

func assetFrom(file multipart.File, header *multipart.FileHeader) *studio.Asset {
	return &studio.Asset{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

func (h *Handler) updateTitle(w http.ResponseWriter, r *http.Request) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var patch studio.MetadataPatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteError(w, r, err)
		return
	}

	title, err := h.Studio.UpdateMetadata(r.Context(), session(r), id, patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

func (h *Handler) deleteTitle(w http.ResponseWriter, r *http.Request) {
	id, err := titleID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.Studio.Delete(r.Context(), session(r), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
