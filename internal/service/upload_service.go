package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"photogallery/internal/events"
	"photogallery/internal/ids"
	"photogallery/internal/media/metadata"
	"photogallery/internal/media/sniffer"
	"photogallery/internal/metrics"
	"photogallery/internal/models"
	"photogallery/internal/repository"
	"photogallery/internal/storage"
)

var (
	ErrNoFiles      = errors.New("no files")
	ErrNoValidFiles = errors.New("no valid files")
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyFile    = errors.New("empty file")
)

// Stages at which a single file can drop out of a batch.
const (
	StageRead   = "read"
	StageStore  = "store"
	StageRecord = "record"
)

type FileFailure struct {
	Name  string
	Stage string
	Err   error
}

// BatchResult holds the outcome of every part of one upload request.
type BatchResult struct {
	Saved   []models.Photo
	Failed  []FileFailure
	Skipped []string
}

type UploadService struct {
	photos      *repository.PhotoRepository
	store       storage.Store
	events      *events.Publisher
	metrics     *metrics.Recorder
	maxFileSize int64
	log         zerolog.Logger
}

func NewUploadService(photos *repository.PhotoRepository, store storage.Store, publisher *events.Publisher, recorder *metrics.Recorder, maxFileSize int64, log zerolog.Logger) *UploadService {
	return &UploadService{
		photos:      photos,
		store:       store,
		events:      publisher,
		metrics:     recorder,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

// Upload stores every image part of a batch in turn. A file that fails is
// recorded in the result and the batch moves on; only an empty batch or a batch
// without a single stored image is an error.
func (s *UploadService) Upload(ctx context.Context, files []*multipart.FileHeader) (BatchResult, error) {
	var result BatchResult
	if len(files) == 0 {
		return result, ErrNoFiles
	}

	for _, fh := range files {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("upload interrupted after %d files: %w", len(result.Saved), err)
		}

		mimeType := sniffer.MimeTypeFromHTTP(fh.Header)
		if !sniffer.IsImage(mimeType) {
			s.log.Debug().Str("file", fh.Filename).Str("content_type", mimeType).Msg("skipping non-image part")
			s.metrics.PartSkipped(ctx)
			result.Skipped = append(result.Skipped, fh.Filename)
			continue
		}

		photo, stage, err := s.uploadOne(ctx, fh, mimeType)
		if err != nil {
			s.log.Error().Err(err).Str("file", fh.Filename).Str("stage", stage).Msg("upload of file failed")
			s.metrics.UploadFailed(ctx, stage)
			result.Failed = append(result.Failed, FileFailure{Name: fh.Filename, Stage: stage, Err: err})
			continue
		}

		s.log.Info().
			Str("photo_id", photo.ID).
			Str("file", photo.OriginalName).
			Str("size", humanize.Bytes(uint64(photo.Size))).
			Int("width", photo.Width).
			Int("height", photo.Height).
			Msg("photo uploaded")
		s.metrics.PhotoUploaded(ctx, photo.StorageDriver, photo.Size)
		if err := s.events.Publish(ctx, events.PhotoUploaded(photo)); err != nil {
			s.log.Warn().Err(err).Str("photo_id", photo.ID).Msg("publish upload event failed")
		}
		result.Saved = append(result.Saved, photo)
	}

	if len(result.Saved) == 0 {
		return result, ErrNoValidFiles
	}
	return result, nil
}

func (s *UploadService) uploadOne(ctx context.Context, fh *multipart.FileHeader, mimeType string) (models.Photo, string, error) {
	data, err := s.read(fh)
	if err != nil {
		return models.Photo{}, StageRead, err
	}

	obj, err := s.store.Write(ctx, data, storageName(fh.Filename, data), mimeType)
	if err != nil {
		return models.Photo{}, StageStore, err
	}

	dims := metadata.Extract(data)

	photo := models.Photo{
		ID:            ids.New(),
		OriginalName:  fh.Filename,
		URL:           obj.URL,
		StorageDriver: s.store.Driver(),
		StorageKey:    obj.Key,
		Size:          int64(len(data)),
		Width:         dims.Width,
		Height:        dims.Height,
	}
	// The bytes stay in the store if this fails; nothing references them.
	if err := s.photos.Create(ctx, &photo); err != nil {
		return models.Photo{}, StageRecord, fmt.Errorf("save metadata: %w", err)
	}
	return photo, "", nil
}

func (s *UploadService) read(fh *multipart.FileHeader) ([]byte, error) {
	if s.maxFileSize > 0 && fh.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrFileTooLarge, humanize.Bytes(uint64(fh.Size)), humanize.Bytes(uint64(s.maxFileSize)))
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if s.maxFileSize > 0 {
		reader = io.LimitReader(file, s.maxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read part: %w", err)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: more than %s", ErrFileTooLarge, humanize.Bytes(uint64(s.maxFileSize)))
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

// storageName keeps the uploaded name when it carries an extension and otherwise
// appends one detected from the content.
func storageName(name string, data []byte) string {
	if storage.Extension(name) != "" {
		return name
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if detected, err := sniffer.DetectHead(head); err == nil {
		return name + detected.Extension()
	}
	return name
}
