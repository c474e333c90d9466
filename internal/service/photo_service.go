package service

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/rs/zerolog"

	"photogallery/internal/events"
	"photogallery/internal/metrics"
	"photogallery/internal/models"
	"photogallery/internal/repository"
	"photogallery/internal/storage"
)

type ListQuery struct {
	Search       string
	FavoriteOnly bool
	Page         int
}

type Page struct {
	Photos     []models.Photo
	Page       int
	Total      int64
	TotalPages int
}

type PhotoService struct {
	photos   *repository.PhotoRepository
	local    *storage.Local
	events   *events.Publisher
	metrics  *metrics.Recorder
	pageSize int
	log      zerolog.Logger
}

func NewPhotoService(photos *repository.PhotoRepository, local *storage.Local, publisher *events.Publisher, recorder *metrics.Recorder, pageSize int, log zerolog.Logger) *PhotoService {
	return &PhotoService{
		photos:   photos,
		local:    local,
		events:   publisher,
		metrics:  recorder,
		pageSize: pageSize,
		log:      log,
	}
}

func (s *PhotoService) Count(ctx context.Context) (int64, error) {
	return s.photos.Count(ctx)
}

func (s *PhotoService) List(ctx context.Context, q ListQuery) (Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	result, err := s.photos.List(ctx, repository.ListFilter{
		Search:       strings.TrimSpace(q.Search),
		FavoriteOnly: q.FavoriteOnly,
	}, page, s.pageSize)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Photos:     result.Photos,
		Page:       page,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *PhotoService) SetFavorite(ctx context.Context, id string, favorite bool) (models.Photo, error) {
	return s.photos.SetFavorite(ctx, id, favorite)
}

// Delete removes the record and then tries to remove its bytes. Local files are
// removed in place; remote objects are handed to the worker through a
// photo.deleted event. Failing to remove the bytes never fails the delete.
func (s *PhotoService) Delete(ctx context.Context, id string) (models.Photo, error) {
	photo, err := s.photos.Delete(ctx, id)
	if err != nil {
		return models.Photo{}, err
	}
	s.metrics.PhotoDeleted(ctx, photo.StorageDriver)

	logger := s.log.With().Str("photo_id", photo.ID).Str("driver", photo.StorageDriver).Str("key", photo.StorageKey).Logger()

	if photo.IsLocal() {
		s.removeLocal(ctx, photo, logger)
	} else if !s.events.Enabled() {
		logger.Warn().Msg("remote object left in place, event publishing disabled")
	}

	if err := s.events.Publish(ctx, events.PhotoDeleted(photo)); err != nil {
		logger.Warn().Err(err).Msg("publish delete event failed")
	}

	return photo, nil
}

func (s *PhotoService) removeLocal(ctx context.Context, photo models.Photo, logger zerolog.Logger) {
	if s.local == nil {
		logger.Warn().Msg("local storage unavailable, file left in place")
		return
	}
	err := s.local.Remove(ctx, photo.StorageKey)
	switch {
	case err == nil:
		logger.Debug().Msg("backing file removed")
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn().Msg("backing file already absent")
	default:
		logger.Error().Err(err).Msg("remove backing file failed")
	}
}
