package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"photogallery/internal/config"
	"photogallery/internal/database"
	"photogallery/internal/service"
)

type HandlerSet struct {
	log    zerolog.Logger
	cfg    *config.AppConfig
	db     *database.DB
	cache  *redis.Client
	upload *service.UploadService
	photos *service.PhotoService
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, db *database.DB, cache *redis.Client, upload *service.UploadService, photos *service.PhotoService) HandlerSet {
	return HandlerSet{
		log:    log,
		cfg:    cfg,
		db:     db,
		cache:  cache,
		upload: upload,
		photos: photos,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	photos := router.Group("/photos")
	photos.GET("", h.ListPhotos)
	photos.POST("/upload", h.UploadPhotos)
	photos.PATCH("/:id", h.UpdatePhoto)
	photos.DELETE("/:id", h.DeletePhoto)
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
}
