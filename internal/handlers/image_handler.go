package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/artswipe/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ImageHandler struct {
	imageService      *services.ImageService
	generationService *services.GenerationService
}

func NewImageHandler(imageService *services.ImageService, generationService *services.GenerationService) *ImageHandler {
	return &ImageHandler{
		imageService:      imageService,
		generationService: generationService,
	}
}

// SwipeRequest is the body of a swipe. Liked is a pointer so a missing field fails validation.
type SwipeRequest struct {
	Liked *bool `json:"liked" binding:"required"`
}

// Health reports whether the database is reachable
// GET /health
func (h *ImageHandler) Health(c *gin.Context) {
	sqlDB, err := h.imageService.GetDB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		log.Printf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetPendingImages lists unswiped images
// GET /api/images/pending
func (h *ImageHandler) GetPendingImages(c *gin.Context) {
	images, err := h.imageService.GetPendingImages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// GetLikedImages lists liked images
// GET /api/images/liked
func (h *ImageHandler) GetLikedImages(c *gin.Context) {
	images, err := h.imageService.GetLikedImages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// GetStats returns liked/disliked totals
// GET /api/stats
func (h *ImageHandler) GetStats(c *gin.Context) {
	stats, err := h.imageService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetImageCount reports the image count against the cap
// GET /api/images/count
func (h *ImageHandler) GetImageCount(c *gin.Context) {
	count, limit, canGenerate, err := h.generationService.Capacity(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       count,
		"limit":       limit,
		"canGenerate": canGenerate,
	})
}

// GenerateImages runs one generation batch
// POST /api/images/generate
func (h *ImageHandler) GenerateImages(c *gin.Context) {
	created, err := h.generationService.GenerateBatch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// SwipeImage records a like or dislike
// POST /api/images/:id/swipe
// Body: {"liked": true|false}
func (h *ImageHandler) SwipeImage(c *gin.Context) {
	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": []string{err.Error()}})
		return
	}

	// ids are UUIDs, anything else cannot exist
	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	image, err := h.imageService.SwipeImage(c.Request.Context(), imageID, *req.Liked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

// respondError maps service errors onto status codes
func respondError(c *gin.Context, err error) {
	var batchErr *services.BatchError

	switch {
	case errors.Is(err, services.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
	case errors.Is(err, services.ErrCapReached):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrGenerationInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &batchErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": batchErr.Error(), "details": batchErr.Details()})
	default:
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
