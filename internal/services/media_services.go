package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fathima-sithara/mycloud/internal/events"
	models "github.com/fathima-sithara/mycloud/internal/media"
	"github.com/fathima-sithara/mycloud/internal/metrics"
	"github.com/fathima-sithara/mycloud/internal/repository"
	"github.com/fathima-sithara/mycloud/internal/storage"
	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"go.uber.org/zap"
)

const thumbWidth = 320

type Repository interface {
	Insert(ctx context.Context, m *models.Media) error
	GetByID(ctx context.Context, id string) (*models.Media, error)
	GetByFilename(ctx context.Context, filename string, f repository.Filter) (*models.Media, error)
	List(ctx context.Context, f repository.Filter) ([]*models.Media, error)
	Page(ctx context.Context, f repository.Filter, page, size int) ([]*models.Media, error)
	UpdateMeta(ctx context.Context, id string, p models.Patch) (*models.Media, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	PresignTTL     time.Duration
	PageSize       int
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Logger         *zap.SugaredLogger
}

type MediaService struct {
	repo       Repository
	store      storage.Store
	pub        events.Publisher
	metrics    *metrics.Metrics
	log        *zap.SugaredLogger
	presignTTL time.Duration
	pageSize   int
	maxBytes   int64
}

func NewMediaService(repo Repository, store storage.Store, pub events.Publisher, o Options) *MediaService {
	if pub == nil {
		pub = events.Noop{}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.PageSize <= 0 {
		o.PageSize = 12
	}
	if o.PresignTTL <= 0 {
		o.PresignTTL = 10 * time.Minute
	}
	return &MediaService{
		repo:       repo,
		store:      store,
		pub:        pub,
		metrics:    o.Metrics,
		log:        o.Logger,
		presignTTL: o.PresignTTL,
		pageSize:   o.PageSize,
		maxBytes:   o.MaxUploadBytes,
	}
}

func (s *MediaService) PageSize() int { return s.pageSize }

func (s *MediaService) MaxUploadBytes() int64 { return s.maxBytes }

type UploadInput struct {
	Owner       string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Keywords    string
	Visibility  string // optional, defaults to private
}

// Upload stores the bytes first and inserts the record only once they are safe.
// A failed insert removes the freshly written object again.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*models.Media, error) {
	if in.Owner == "" {
		return nil, utils.ErrUnauthorized
	}
	if in.Body == nil {
		return nil, fmt.Errorf("%w: no file attached", utils.ErrValidation)
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", utils.ErrTooLarge, in.Size, s.maxBytes)
	}
	vis := models.VisibilityPrivate
	if strings.TrimSpace(in.Visibility) != "" {
		v, ok := models.ParseVisibility(in.Visibility)
		if !ok {
			return nil, fmt.Errorf("%w: visibility must be private or public", utils.ErrValidation)
		}
		vis = v
	}
	ct := in.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	filename := utils.SafeName(in.Filename)
	key := utils.ObjectKey(in.Owner, filename)
	kind := models.KindOf(ct)

	body, size := in.Body, in.Size
	var data []byte
	if kind == models.KindImage {
		// images are buffered so a preview can be cut from the same bytes
		b, err := io.ReadAll(io.LimitReader(in.Body, in.Size+1))
		if err != nil {
			return nil, fmt.Errorf("%w: read upload: %v", utils.ErrValidation, err)
		}
		data = b
		body, size = bytes.NewReader(data), int64(len(data))
		if s.maxBytes > 0 && size > s.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", utils.ErrTooLarge, size, s.maxBytes)
		}
	}

	url, err := s.store.Upload(ctx, key, ct, body, size)
	if err != nil {
		s.metrics.StorageFailures.WithLabelValues("upload").Inc()
		s.log.Errorw("object upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %w", utils.ErrStorage, err)
	}

	media := &models.Media{
		ID:          utils.NewID(),
		Owner:       in.Owner,
		Filename:    filename,
		ContentType: ct,
		Key:         key,
		URL:         url,
		Size:        size,
		Visibility:  vis,
		Keywords:    strings.TrimSpace(in.Keywords),
		CreatedAt:   time.Now().UTC(),
	}
	if data != nil {
		media.Thumbnail = s.storeThumbnail(ctx, key, data)
	}

	if err := s.repo.Insert(ctx, media); err != nil {
		s.log.Errorw("media insert failed, reclaiming object", "key", key, "error", err)
		s.reclaim(context.WithoutCancel(ctx), media)
		return nil, fmt.Errorf("insert media: %w", err)
	}

	s.metrics.Uploads.WithLabelValues(string(kind)).Inc()
	s.publish(ctx, events.MediaUploaded, media)
	return media, nil
}

// storeThumbnail is best effort; an undecodable image simply has no preview.
func (s *MediaService) storeThumbnail(ctx context.Context, key string, data []byte) string {
	thumb, err := generateThumbnail(data)
	if err != nil {
		s.log.Debugw("thumbnail skipped", "key", key, "error", err)
		return ""
	}
	thumbKey := utils.ThumbKey(key)
	if _, err := s.store.Upload(ctx, thumbKey, "image/jpeg", bytes.NewReader(thumb), int64(len(thumb))); err != nil {
		s.log.Warnw("thumbnail upload failed", "key", thumbKey, "error", err)
		return ""
	}
	return thumbKey
}

// shared is the filter every unscoped read uses: public records plus the caller's own.
func shared(caller string) repository.Filter {
	return repository.Filter{Shared: true, Viewer: caller}
}

// GetByFilename returns the oldest record with filename that caller may see.
func (s *MediaService) GetByFilename(ctx context.Context, caller, filename string) (*models.Media, error) {
	m, err := s.repo.GetByFilename(ctx, filename, shared(caller))
	if err != nil {
		return nil, s.mapRepoErr(err, "media "+filename)
	}
	return m, nil
}

// GetAll is the unscoped gallery listing.
func (s *MediaService) GetAll(ctx context.Context, caller string, vis models.Visibility) ([]*models.Media, error) {
	f := shared(caller)
	f.Visibility = vis
	return s.repo.List(ctx, f)
}

func (s *MediaService) GetUserMedia(ctx context.Context, owner string, vis models.Visibility) ([]*models.Media, error) {
	if owner == "" {
		return nil, utils.ErrUnauthorized
	}
	return s.repo.List(ctx, repository.Filter{Owner: owner, Visibility: vis})
}

func (s *MediaService) Search(ctx context.Context, caller, keyword string, vis models.Visibility) ([]*models.Media, error) {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return nil, fmt.Errorf("%w: keyword required", utils.ErrValidation)
	}
	f := shared(caller)
	f.Keyword, f.Visibility = kw, vis
	return s.repo.List(ctx, f)
}

// Page returns page (0-based) of the unscoped listing. Out of range pages are empty.
func (s *MediaService) Page(ctx context.Context, caller string, page int, vis models.Visibility) ([]*models.Media, error) {
	if page < 0 {
		return []*models.Media{}, nil
	}
	f := shared(caller)
	f.Visibility = vis
	return s.repo.Page(ctx, f, page, s.pageSize)
}

// Authorize loads id and checks that caller owns it. Every mutating route goes through here.
func (s *MediaService) Authorize(ctx context.Context, caller, id string) (*models.Media, error) {
	if caller == "" {
		return nil, utils.ErrUnauthorized
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "media "+id)
	}
	if m.Owner != caller {
		return nil, fmt.Errorf("%w: media %s belongs to another user", utils.ErrForbidden, id)
	}
	return m, nil
}

// Delete removes an authorized record together with its bytes. The bytes go first:
// if the store fails the record stays and the call reports a StorageError.
func (s *MediaService) Delete(ctx context.Context, m *models.Media) error {
	if err := s.store.Delete(ctx, m.Key); err != nil {
		s.metrics.StorageFailures.WithLabelValues("delete").Inc()
		s.log.Errorw("object delete failed", "key", m.Key, "error", err)
		return fmt.Errorf("%w: %w", utils.ErrStorage, err)
	}
	if m.Thumbnail != "" {
		if err := s.store.Delete(ctx, m.Thumbnail); err != nil {
			s.log.Warnw("thumbnail delete failed", "key", m.Thumbnail, "error", err)
		}
	}
	if err := s.repo.Delete(ctx, m.ID); err != nil {
		return s.mapRepoErr(err, "media "+m.ID)
	}
	s.metrics.Deletes.WithLabelValues(string(m.Kind())).Inc()
	s.publish(ctx, events.MediaDeleted, m)
	return nil
}

// Edit applies a partial keywords/visibility update to an authorized record.
func (s *MediaService) Edit(ctx context.Context, m *models.Media, p models.Patch) (*models.Media, error) {
	p, err := ValidatePatch(p)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateMeta(ctx, m.ID, p)
	if err != nil {
		return nil, s.mapRepoErr(err, "media "+m.ID)
	}
	s.metrics.Edits.Inc()
	s.publish(ctx, events.MediaUpdated, updated)
	return updated, nil
}

// ValidatePatch requires at least one field, non-blank keywords and a known visibility.
func ValidatePatch(p models.Patch) (models.Patch, error) {
	if p.Empty() {
		return p, fmt.Errorf("%w: keywords or visibility required", utils.ErrValidation)
	}
	if p.Keywords != nil {
		kw := strings.TrimSpace(*p.Keywords)
		if kw == "" {
			return p, fmt.Errorf("%w: keywords must not be empty", utils.ErrValidation)
		}
		p.Keywords = &kw
	}
	if p.Visibility != nil {
		v, ok := models.ParseVisibility(string(*p.Visibility))
		if !ok {
			return p, fmt.Errorf("%w: visibility must be private or public", utils.ErrValidation)
		}
		p.Visibility = &v
	}
	if err := utils.ValidateStruct(p); err != nil {
		return p, err
	}
	return p, nil
}

// Open streams the bytes of the record stored under filename.
func (s *MediaService) Open(ctx context.Context, caller, filename string) (*models.Media, io.ReadCloser, int64, error) {
	m, err := s.GetByFilename(ctx, caller, filename)
	if err != nil {
		return nil, nil, 0, err
	}
	return s.openBytes(ctx, m)
}

// OpenByID streams the bytes of one record, subject to the same rule as ShareURL.
func (s *MediaService) OpenByID(ctx context.Context, caller, id string) (*models.Media, io.ReadCloser, int64, error) {
	m, err := s.viewable(ctx, caller, id)
	if err != nil {
		return nil, nil, 0, err
	}
	return s.openBytes(ctx, m)
}

func (s *MediaService) openBytes(ctx context.Context, m *models.Media) (*models.Media, io.ReadCloser, int64, error) {
	rc, size, err := s.store.Download(ctx, m.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, 0, fmt.Errorf("bytes of %s: %w", m.Filename, utils.ErrNotFound)
		}
		s.metrics.StorageFailures.WithLabelValues("download").Inc()
		return nil, nil, 0, fmt.Errorf("%w: %w", utils.ErrStorage, err)
	}
	return m, rc, size, nil
}

// viewable loads id for caller. Private items are only visible to their owner.
func (s *MediaService) viewable(ctx context.Context, caller, id string) (*models.Media, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "media "+id)
	}
	if m.Visibility != models.VisibilityPublic {
		if caller == "" {
			return nil, utils.ErrUnauthorized
		}
		if caller != m.Owner {
			return nil, fmt.Errorf("%w: media %s is private", utils.ErrForbidden, id)
		}
	}
	return m, nil
}

// ShareURL returns a link to the bytes: the public object URL when there is one,
// a presigned URL otherwise.
func (s *MediaService) ShareURL(ctx context.Context, caller, id string) (string, error) {
	m, err := s.viewable(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if m.URL != "" {
		return m.URL, nil
	}
	return s.presign(ctx, m.Key)
}

// PreviewURL links the thumbnail of an image, or the item itself when it has none.
func (s *MediaService) PreviewURL(ctx context.Context, caller, id string) (string, error) {
	m, err := s.viewable(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if m.Thumbnail == "" {
		if m.URL != "" {
			return m.URL, nil
		}
		return s.presign(ctx, m.Key)
	}
	return s.presign(ctx, m.Thumbnail)
}

func (s *MediaService) presign(ctx context.Context, key string) (string, error) {
	u, err := s.store.PresignURL(ctx, key, s.presignTTL)
	if err != nil {
		s.metrics.StorageFailures.WithLabelValues("presign").Inc()
		return "", fmt.Errorf("%w: %w", utils.ErrStorage, err)
	}
	return u, nil
}

func (s *MediaService) reclaim(ctx context.Context, m *models.Media) {
	for _, k := range []string{m.Key, m.Thumbnail} {
		if k == "" {
			continue
		}
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Warnw("orphaned object", "key", k, "error", err)
		}
	}
}

func (s *MediaService) publish(ctx context.Context, t events.Type, m *models.Media) {
	if err := s.pub.Publish(ctx, events.New(t, m)); err != nil {
		s.log.Warnw("publish media event failed", "type", t, "media_id", m.ID, "error", err)
	}
}

func (s *MediaService) mapRepoErr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, utils.ErrNotFound)
	}
	return err
}

// generateThumbnail scales data to thumbWidth and encodes it as JPEG.
func generateThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
