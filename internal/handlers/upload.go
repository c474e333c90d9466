package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"photogallery/internal/models"
	"photogallery/internal/service"
)

func (h HandlerSet) UploadPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		// A body that is not multipart carries no files.
		h.log.Debug().Err(err).Msg("multipart form unreadable")
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNoFiles.Error()})
		return
	}

	result, err := h.upload.Upload(c.Request.Context(), form.File[h.cfg.Upload.Field])
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoFiles), errors.Is(err, service.ErrNoValidFiles):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		h.log.Error().Err(err).Int("saved", len(result.Saved)).Msg("upload aborted")
		internalError(c)
		return
	}

	if len(result.Failed) > 0 {
		h.log.Warn().
			Int("saved", len(result.Saved)).
			Int("failed", len(result.Failed)).
			Int("skipped", len(result.Skipped)).
			Msg("upload finished with failures")
	}

	photos := result.Saved
	if photos == nil {
		photos = []models.Photo{}
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "upload succeeded",
		"photos":  photos,
	})
}
