package studio

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/media"
	apperrors "github.com/trexinity/another/pkg/errors"
)

// Asset is a file attached to the publish form.
type Asset struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PublishForm is the admin "add title" form. Either Thumbnail or
// ThumbnailURL must be given; a cloudinary source needs Video.
type PublishForm struct {
	Title        string             `json:"title" validate:"required"`
	Description  string             `json:"description"`
	Genre        string             `json:"genre" validate:"required"`
	Language     string             `json:"language"`
	Year         *int               `json:"year" validate:"omitempty,gte=1870,lte=2200"`
	Rating       *float64           `json:"rating" validate:"omitempty,gte=0,lte=10"`
	Duration     *int               `json:"duration" validate:"omitempty,gte=0"`
	Director     string             `json:"director"`
	Cast         string             `json:"cast"`
	Type         domain.TitleType   `json:"type" validate:"omitempty,oneof=movie series"`
	VideoSource  domain.VideoSource `json:"videoSource" validate:"required,oneof=archive googledrive cloudinary"`
	VideoURL     string             `json:"videoUrl"`
	ThumbnailURL string             `json:"thumbnailUrl" validate:"omitempty,url"`
	Episodes     []domain.Episode   `json:"episodes"`

	Thumbnail *Asset `json:"-" form:"thumbnail" validate:"required_without=ThumbnailURL"`
	Video     *Asset `json:"-" form:"video"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("form"); name != "" {
				return name
			}
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate.RegisterStructValidation(validateSource, PublishForm{})
	})
	return validate
}

// validateSource checks the locator against the chosen video source.
func validateSource(sl validator.StructLevel) {
	form := sl.Current().Interface().(PublishForm)
	switch form.VideoSource {
	case domain.SourceArchive:
		if !media.IsArchiveURL(form.VideoURL) {
			sl.ReportError(form.VideoURL, "videoUrl", "VideoURL", "archiveurl", "")
		}
	case domain.SourceGoogleDrive:
		if _, ok := media.DriveFileID(form.VideoURL); !ok {
			sl.ReportError(form.VideoURL, "videoUrl", "VideoURL", "driveurl", "")
		}
	case domain.SourceCloudinary:
		if form.Video == nil {
			sl.ReportError(form.Video, "video", "Video", "required", "")
		}
	}
}

type sourceFields struct {
	VideoSource domain.VideoSource `json:"videoSource"`
	VideoURL    string             `json:"videoUrl"`
}

// checkPatchedSource validates the source and locator a title ends up with
// after patch is applied to stored, and returns the locator to store. Drive
// links become preview URLs. A patch cannot upload a video, so it can only
// keep an upload-backed source, never switch to one.
func checkPatchedSource(stored sourceFields, patch MetadataPatch) (string, error) {
	merged := stored
	if patch.VideoSource != nil {
		merged.VideoSource = *patch.VideoSource
	}
	if patch.VideoURL != nil {
		merged.VideoURL = strings.TrimSpace(*patch.VideoURL)
	}

	switch merged.VideoSource {
	case domain.SourceArchive:
		if !media.IsArchiveURL(merged.VideoURL) {
			return "", apperrors.Validation("videoUrl", messages["archiveurl"])
		}
	case domain.SourceGoogleDrive:
		preview, ok := media.DrivePreviewURL(merged.VideoURL)
		if !ok {
			return "", apperrors.Validation("videoUrl", messages["driveurl"])
		}
		merged.VideoURL = preview
	case domain.SourceCloudinary:
		if stored.VideoSource != domain.SourceCloudinary {
			return "", apperrors.Validation("video", messages["required"])
		}
		if merged.VideoURL == "" {
			return "", apperrors.Validation("videoUrl", messages["required"])
		}
	default:
		return "", apperrors.Validation("videoSource", "must be one of: archive googledrive cloudinary")
	}
	return merged.VideoURL, nil
}

var messages = map[string]string{
	"required":         "is required",
	"required_without": "is required",
	"oneof":            "must be one of: %s",
	"gte":              "must be at least %s",
	"lte":              "must be at most %s",
	"url":              "must be a valid URL",
	"archiveurl":       "must be an archive.org URL",
	"driveurl":         "must be a Google Drive link with a file id",
}

// Validate checks the form and returns a Validation error naming the first
// offending field.
func (f PublishForm) Validate() error {
	err := formValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation("form", err.Error())
	}

	fe := verrs[0]
	msg, ok := messages[fe.Tag()]
	if !ok {
		msg = "is invalid"
	}
	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, fe.Param())
	}
	return apperrors.Validation(fe.Field(), msg)
}

// MetadataPatch lists the metadata fields an admin may edit. Nil fields are
// left as stored. Counters and createdAt are not editable.
type MetadataPatch struct {
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	Genre        *string             `json:"genre"`
	Language     *string             `json:"language"`
	Year         *int                `json:"year"`
	Rating       *float64            `json:"rating"`
	Duration     *int                `json:"duration"`
	Director     *string             `json:"director"`
	Cast         *string             `json:"cast"`
	Type         *domain.TitleType   `json:"type"`
	ThumbnailURL *string             `json:"thumbnailUrl"`
	VideoURL     *string             `json:"videoUrl"`
	VideoSource  *domain.VideoSource `json:"videoSource"`
	Episodes     *[]domain.Episode   `json:"episodes"`
}

func (p MetadataPatch) validate() error {
	switch {
	case p.Title != nil && strings.TrimSpace(*p.Title) == "":
		return apperrors.Validation("title", "is required")
	case p.Genre != nil && strings.TrimSpace(*p.Genre) == "":
		return apperrors.Validation("genre", "is required")
	case p.ThumbnailURL != nil && *p.ThumbnailURL == "":
		return apperrors.Validation("thumbnailUrl", "is required")
	case p.Type != nil && *p.Type != domain.TypeMovie && *p.Type != domain.TypeSeries:
		return apperrors.Validation("type", "must be one of: movie series")
	case p.VideoSource != nil && !p.VideoSource.Valid():
		return apperrors.Validation("videoSource", "must be one of: archive googledrive cloudinary")
	case p.Rating != nil && (*p.Rating < 0 || *p.Rating > 10):
		return apperrors.Validation("rating", "must be between 0 and 10")
	}
	return nil
}

// fields returns the patch as record keys to overwrite.
func (p MetadataPatch) fields() map[string]any {
	out := make(map[string]any)
	put := func(key string, set bool, v any) {
		if set {
			out[key] = v
		}
	}
	put("title", p.Title != nil, p.Title)
	put("description", p.Description != nil, p.Description)
	put("genre", p.Genre != nil, p.Genre)
	put("language", p.Language != nil, p.Language)
	put("year", p.Year != nil, p.Year)
	put("rating", p.Rating != nil, p.Rating)
	put("duration", p.Duration != nil, p.Duration)
	put("director", p.Director != nil, p.Director)
	put("cast", p.Cast != nil, p.Cast)
	put("type", p.Type != nil, p.Type)
	put("thumbnailUrl", p.ThumbnailURL != nil, p.ThumbnailURL)
	put("videoUrl", p.VideoURL != nil, p.VideoURL)
	put("videoSource", p.VideoSource != nil, p.VideoSource)
	put("episodes", p.Episodes != nil, p.Episodes)
	return out
}
