package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photogallery/internal/ids"
	"photogallery/internal/models"
	"photogallery/internal/repository"
	"photogallery/internal/service"
)

type listResponse struct {
	Photos      []models.Photo `json:"photos"`
	TotalPhotos int64          `json:"total_photos"`
	TotalPages  int            `json:"total_pages"`
	Page        int            `json:"page"`
}

type updatePhotoRequest struct {
	IsFavorite *bool `json:"isFavorite"`
}

func (h HandlerSet) ListPhotos(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}

	result, err := h.photos.List(c.Request.Context(), service.ListQuery{
		Search:       c.Query("search"),
		FavoriteOnly: c.Query("favorite") == "true",
		Page:         page,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("list photos failed")
		internalError(c)
		return
	}

	photos := result.Photos
	if photos == nil {
		photos = []models.Photo{}
	}
	c.JSON(http.StatusOK, listResponse{
		Photos:      photos,
		TotalPhotos: result.Total,
		TotalPages:  result.TotalPages,
		Page:        result.Page,
	})
}

func (h HandlerSet) UpdatePhoto(c *gin.Context) {
	if !ids.Valid(c.Param("id")) {
		notFound(c)
		return
	}
	var req updatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsFavorite == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isFavorite is required"})
		return
	}

	photo, err := h.photos.SetFavorite(c.Request.Context(), c.Param("id"), *req.IsFavorite)
	if err != nil {
		h.writeLookupError(c, err, "update photo failed")
		return
	}
	c.JSON(http.StatusOK, photo)
}

func (h HandlerSet) DeletePhoto(c *gin.Context) {
	if !ids.Valid(c.Param("id")) {
		notFound(c)
		return
	}
	if _, err := h.photos.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeLookupError(c, err, "delete photo failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "photo deleted"})
}

func (h HandlerSet) writeLookupError(c *gin.Context, err error, msg string) {
	if errors.Is(err, repository.ErrPhotoNotFound) {
		notFound(c)
		return
	}
	h.log.Error().Err(err).Str("photo_id", c.Param("id")).Msg(msg)
	internalError(c)
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
}
