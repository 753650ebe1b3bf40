// Package studio implements the admin publishing flow: validate the form,
// upload its assets, and only then add the title to the catalog.
package studio

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/pool"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/media"
	"github.com/trexinity/another/internal/docstore"
	"github.com/trexinity/another/pkg/auth"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/events"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/metrics"
)

const (
	kindThumbnail = "thumbnails"
	kindVideo     = "videos"
)

var errTitleMissing = errors.New("title missing")

// Config bounds uploads and metadata transactions.
type Config struct {
	MaxUploadBytes int64
	MaxAttempts    uint
	BaseDelay      time.Duration
}

// Service publishes and edits catalog titles on behalf of admins. It never
// writes views, likes or likesBy.
type Service struct {
	store     docstore.Store
	uploader  media.Uploader
	authz     *auth.Authorizer
	publisher interfaces.EventPublisher
	cfg       Config
	logger    interfaces.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates the studio service.
func NewService(
	store docstore.Store,
	uploader media.Uploader,
	authz *auth.Authorizer,
	publisher interfaces.EventPublisher,
	cfg Config,
	logger interfaces.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:     store,
		uploader:  uploader,
		authz:     authz,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

type uploaded struct {
	url string
	key string
}

// Publish validates form, uploads its assets concurrently and writes the new
// title. The catalog write is the last step: when any upload fails nothing
// is written and the assets that did upload are removed.
func (s *Service) Publish(ctx context.Context, admin domain.UserSession, form PublishForm) (domain.Title, error) {
	if err := s.authz.Authorize(admin, auth.ResourceCatalog, auth.ActionWrite); err != nil {
		return domain.Title{}, err
	}
	if err := form.Validate(); err != nil {
		return domain.Title{}, err
	}
	if err := s.checkSize("thumbnail", form.Thumbnail); err != nil {
		return domain.Title{}, err
	}
	if err := s.checkSize("video", form.Video); err != nil {
		return domain.Title{}, err
	}

	thumb, video, err := s.uploadAssets(ctx, form)
	if err != nil {
		return domain.Title{}, err
	}

	title := s.buildTitle(admin, form, thumb, video)

	data, err := docstore.Marshal(title.Record())
	if err != nil {
		s.cleanup(thumb, video)
		return domain.Title{}, apperrors.Wrap(apperrors.ErrorTypeInternal, "failed to encode title", err)
	}
	id, err := s.store.Push(ctx, domain.MoviesPath, data)
	if err != nil {
		s.cleanup(thumb, video)
		return domain.Title{}, apperrors.FetchFailed("failed to add title", err)
	}
	title.ID = id

	s.logger.Info("Title published",
		interfaces.String("title_id", id),
		interfaces.String("title", title.Title),
		interfaces.String("uploaded_by", admin.UID))
	s.publish(ctx, events.NewAggregateEvent(events.TitlePublished, id, map[string]interface{}{
		"title":       title.Title,
		"videoSource": string(title.VideoSource),
		"uploadedBy":  admin.UID,
	}))

	return title, nil
}

func (s *Service) checkSize(field string, a *Asset) error {
	if a == nil || s.cfg.MaxUploadBytes <= 0 {
		return nil
	}
	if a.Size > s.cfg.MaxUploadBytes {
		return apperrors.Validation(field, "exceeds the upload size limit")
	}
	return nil
}

// uploadAssets runs the thumbnail and video uploads in parallel. The first
// failure cancels the other upload.
func (s *Service) uploadAssets(ctx context.Context, form PublishForm) (thumb, video uploaded, err error) {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	if form.Thumbnail != nil {
		p.Go(func(ctx context.Context) error {
			var err error
			thumb, err = s.upload(ctx, kindThumbnail, form.Thumbnail)
			return err
		})
	}
	if form.VideoSource == domain.SourceCloudinary && form.Video != nil {
		p.Go(func(ctx context.Context) error {
			var err error
			video, err = s.upload(ctx, kindVideo, form.Video)
			return err
		})
	}

	if err := p.Wait(); err != nil {
		s.cleanup(thumb, video)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return uploaded{}, uploaded{}, ctxErr
		}
		return uploaded{}, uploaded{}, apperrors.FetchFailed("asset upload failed", err)
	}
	return thumb, video, nil
}

func (s *Service) upload(ctx context.Context, kind string, a *Asset) (uploaded, error) {
	url, key, err := s.uploader.Upload(ctx, media.Upload{
		Kind:        kind,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Body:        a.Body,
	})
	if err != nil {
		s.metrics.Upload(kind, "error")
		s.logger.Warn("Asset upload failed",
			interfaces.String("kind", kind),
			interfaces.String("filename", a.Filename),
			interfaces.Error(err))
		return uploaded{}, err
	}
	s.metrics.Upload(kind, "ok")
	return uploaded{url: url, key: key}, nil
}

// cleanup removes uploaded assets after a failed publish. It must not depend
// on the request context, which may already be cancelled.
func (s *Service) cleanup(assets ...uploaded) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, a := range assets {
		if a.key == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, a.key); err != nil {
			s.logger.Warn("Failed to remove orphaned asset",
				interfaces.String("key", a.key),
				interfaces.Error(err))
		}
	}
}

func (s *Service) buildTitle(admin domain.UserSession, form PublishForm, thumb, video uploaded) domain.Title {
	t := domain.Title{
		Title:           form.Title,
		Description:     form.Description,
		Genre:           form.Genre,
		Language:        form.Language,
		Year:            form.Year,
		Rating:          form.Rating,
		Duration:        form.Duration,
		Director:        form.Director,
		Cast:            form.Cast,
		Type:            form.Type,
		ThumbnailURL:    form.ThumbnailURL,
		VideoSource:     form.VideoSource,
		Episodes:        form.Episodes,
		CreatedAt:       s.now().UTC(),
		UploadedBy:      admin.UID,
		UploadedByEmail: admin.Email,
	}
	if t.Type == "" {
		t.Type = domain.TypeMovie
	}
	if thumb.url != "" {
		t.ThumbnailURL = thumb.url
	}

	switch form.VideoSource {
	case domain.SourceGoogleDrive:
		t.VideoURL, _ = media.DrivePreviewURL(form.VideoURL)
	case domain.SourceCloudinary:
		t.VideoURL = video.url
	default:
		t.VideoURL = form.VideoURL
	}
	return t
}

// UpdateMetadata overwrites the metadata fields set in patch. Counters,
// likesBy, createdAt and fields the studio does not know are written back as
// stored.
func (s *Service) UpdateMetadata(ctx context.Context, admin domain.UserSession, id string, patch MetadataPatch) (domain.Title, error) {
	if err := s.authz.Authorize(admin, auth.ResourceCatalog, auth.ActionWrite); err != nil {
		return domain.Title{}, err
	}
	if err := docstore.ValidateSegment(id); err != nil {
		return domain.Title{}, apperrors.BadRequest("invalid title id")
	}
	if err := patch.validate(); err != nil {
		return domain.Title{}, err
	}
	fields := patch.fields()
	touchesSource := patch.VideoSource != nil || patch.VideoURL != nil

	snap, err := docstore.Transact(ctx, s.store, domain.TitlePath(id),
		func(cur docstore.Snapshot) ([]byte, error) {
			if !cur.Exists {
				return nil, errTitleMissing
			}
			doc := make(map[string]json.RawMessage)
			if err := json.Unmarshal(cur.Value, &doc); err != nil {
				return nil, err
			}
			var stored sourceFields
			if err := json.Unmarshal(cur.Value, &stored); err != nil {
				return nil, err
			}
			for k, v := range fields {
				b, err := json.Marshal(v)
				if err != nil {
					return nil, err
				}
				doc[k] = b
			}
			if touchesSource {
				url, err := checkPatchedSource(stored, patch)
				if err != nil {
					return nil, err
				}
				b, err := json.Marshal(url)
				if err != nil {
					return nil, err
				}
				doc["videoUrl"] = b
			}
			return json.Marshal(doc)
		},
		docstore.WithAttempts(s.cfg.MaxAttempts),
		docstore.WithBaseDelay(s.cfg.BaseDelay),
	)
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, errTitleMissing):
		return domain.Title{}, apperrors.NotFound("title not found")
	case errors.As(err, &appErr):
		return domain.Title{}, appErr
	case errors.Is(err, docstore.ErrTransactionAborted):
		return domain.Title{}, apperrors.Conflict("title is being modified, try again")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Title{}, err
	case err != nil:
		return domain.Title{}, apperrors.FetchFailed("failed to update title", err)
	}

	title, err := domain.DecodeTitle(id, snap.Value)
	if err != nil {
		return domain.Title{}, apperrors.Wrap(apperrors.ErrorTypeInternal, "stored title is unreadable", err)
	}

	s.logger.Info("Title updated",
		interfaces.String("title_id", id),
		interfaces.Int("fields", len(fields)),
		interfaces.String("updated_by", admin.UID))
	s.publish(ctx, events.NewAggregateEvent(events.TitleUpdated, id, map[string]interface{}{
		"updatedBy": admin.UID,
	}))
	return title, nil
}

// Delete removes movies/{id}. Watchlists, favorites and history that name
// the title are left alone; views skip ids missing from the catalog.
func (s *Service) Delete(ctx context.Context, admin domain.UserSession, id string) error {
	if err := s.authz.Authorize(admin, auth.ResourceCatalog, auth.ActionDelete); err != nil {
		return err
	}
	if err := docstore.ValidateSegment(id); err != nil {
		return apperrors.BadRequest("invalid title id")
	}

	path := domain.TitlePath(id)
	snap, err := s.store.Get(ctx, path)
	if err != nil {
		return apperrors.FetchFailed("failed to read title", err)
	}
	if !snap.Exists {
		return apperrors.NotFound("title not found")
	}
	if err := s.store.Delete(ctx, path); err != nil {
		return apperrors.FetchFailed("failed to delete title", err)
	}

	s.logger.Info("Title deleted",
		interfaces.String("title_id", id),
		interfaces.String("deleted_by", admin.UID))
	s.publish(ctx, events.NewAggregateEvent(events.TitleDeleted, id, map[string]interface{}{
		"deletedBy": admin.UID,
	}))
	return nil
}

func (s *Service) publish(ctx context.Context, event interfaces.Event) {
	if s.publisher != nil {
		s.publisher.PublishAsync(ctx, event)
	}
}
