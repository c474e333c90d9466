package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"photogallery/internal/models"
)

var ErrPhotoNotFound = errors.New("photo not found")

type ListFilter struct {
	Search       string
	FavoriteOnly bool
}

type ListResult struct {
	Photos     []models.Photo
	Total      int64
	TotalPages int
}

type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *PhotoRepository) GetByID(ctx context.Context, id string) (models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Photo{}, ErrPhotoNotFound
		}
		return models.Photo{}, err
	}
	return photo, nil
}

// List returns one page of photos, newest first. Page numbers start at 1.
func (r *PhotoRepository) List(ctx context.Context, filter ListFilter, page, limit int) (ListResult, error) {
	if limit < 1 {
		return ListResult{}, fmt.Errorf("invalid page size %d", limit)
	}
	if page < 1 {
		page = 1
	}

	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return ListResult{}, fmt.Errorf("count photos: %w", err)
	}

	photos := make([]models.Photo, 0, limit)
	err := query.
		Order("uploaded_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&photos).Error
	if err != nil {
		return ListResult{}, fmt.Errorf("list photos: %w", err)
	}

	return ListResult{
		Photos:     photos,
		Total:      total,
		TotalPages: TotalPages(total, limit),
	}, nil
}

func (r *PhotoRepository) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Photo{})
	if term := strings.TrimSpace(filter.Search); term != "" {
		// Both sides go through the database's LOWER so they fold the same way.
		query = query.Where("LOWER(original_name) LIKE LOWER(?) ESCAPE '\\'", "%"+escapeLike(term)+"%")
	}
	if filter.FavoriteOnly {
		query = query.Where("is_favorite = ?", true)
	}
	return query
}

func (r *PhotoRepository) SetFavorite(ctx context.Context, id string, favorite bool) (models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&photo).Error; err != nil {
			return err
		}
		if err := tx.Model(&photo).Update("is_favorite", favorite).Error; err != nil {
			return err
		}
		photo.IsFavorite = favorite
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Photo{}, ErrPhotoNotFound
		}
		return models.Photo{}, err
	}
	return photo, nil
}

// Delete removes the row and returns it so the caller can clean up the backing bytes.
func (r *PhotoRepository) Delete(ctx context.Context, id string) (models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&photo).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Photo{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Photo{}, ErrPhotoNotFound
		}
		return models.Photo{}, err
	}
	return photo, nil
}

func (r *PhotoRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).Count(&total).Error
	return total, err
}

func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
