package content

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cravings/auth"
	"cravings/common"
	"cravings/models"
	"cravings/storage"
)

// Module exposes the content repository over HTTP: text blocks by
// (component, key) and slider images by component.
type Module struct {
	repo    Repository
	blobs   storage.Blob
	svc     *auth.Service
	tracker *Tracker
}

func NewModule(db *gorm.DB, blobs storage.Blob, svc *auth.Service, tracker *Tracker) *Module {
	return &Module{
		repo:    NewRepository(db),
		blobs:   blobs,
		svc:     svc,
		tracker: tracker,
	}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/content/:component/:key", m.getBlock)
	router.GET("/api/sliders/:component/images", m.listImages)
	router.GET("/api/pending", m.pending)

	adminGroup := router.Group("/api")
	adminGroup.Use(auth.RequireAdmin(m.svc))
	{
		adminGroup.PUT("/content/:component/:key", m.putBlock)
		adminGroup.POST("/sliders/:component/images", m.uploadImage)
		adminGroup.PATCH("/slider-images/:id", m.updateImageAlt)
		adminGroup.DELETE("/slider-images/:id", m.deleteImage)
	}
}

// pending reports how many tracked mutations are still in flight, for
// the leave-edit-mode confirmation prompt.
func (m *Module) pending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": m.tracker.Pending()})
}

// getBlock returns the stored content, or the caller-supplied default
// when no row exists yet. A missing block is normal, never a 500.
func (m *Module) getBlock(c *gin.Context) {
	component := c.Param("component")
	key := c.Param("key")

	content, err := m.repo.FetchBlock(component, key)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{
			"component_name": component,
			"block_key":      key,
			"content":        c.Query("default"),
			"exists":         false,
		})
		return
	}
	if err != nil {
		common.Log.Error().Err(err).Str("block", component+"."+key).Msg("error fetching content block")
		c.JSON(http.StatusOK, gin.H{
			"component_name": component,
			"block_key":      key,
			"content":        c.Query("default"),
			"exists":         false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"component_name": component,
		"block_key":      key,
		"content":        content,
		"exists":         true,
	})
}

func (m *Module) putBlock(c *gin.Context) {
	var request struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	component := c.Param("component")
	key := c.Param("key")

	settle := m.tracker.Begin("content-block:" + component + "." + key)
	defer settle()

	if err := m.repo.UpsertBlock(component, key, request.Content); err != nil {
		common.Log.Error().Err(err).Str("block", component+"."+key).Msg("error saving content block")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save content"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) listImages(c *gin.Context) {
	images, err := m.repo.FetchImages(c.Param("component"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load images"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (m *Module) uploadImage(c *gin.Context) {
	component := c.Param("component")

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if err := storage.ValidateImage(contentType, file.Size); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := m.repo.FetchImages(component)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load images"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer src.Close()

	settle := m.tracker.Begin("slider-upload:" + component)
	defer settle()

	path := storage.ImagePath(component, contentType)
	url, err := m.blobs.Upload(path, src, contentType)
	if err != nil {
		common.Log.Error().Err(err).Str("component", component).Msg("image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	img := models.SliderImage{
		ComponentName: component,
		ImageURL:      url,
		AltText:       c.PostForm("alt_text"),
		DisplayOrder:  len(existing) + 1,
	}
	if img.AltText == "" {
		img.AltText = fmt.Sprintf("Event Catering Setup %d", len(existing)+1)
	}

	if err := m.repo.InsertImage(&img); err != nil {
		if rmErr := m.blobs.Remove(path); rmErr != nil {
			common.Log.Warn().Err(rmErr).Str("path", path).Msg("could not clean up blob after failed insert")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": img})
}

func (m *Module) updateImageAlt(c *gin.Context) {
	var request struct {
		AltText string `json:"alt_text"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := m.repo.UpdateImageAlt(c.Param("id"), request.AltText); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update description"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteImage removes the row first, then the blob. A blob that
// refuses to go away only earns a warning.
func (m *Module) deleteImage(c *gin.Context) {
	id := c.Param("id")

	img, err := m.repo.FetchImage(id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load image"})
		return
	}

	settle := m.tracker.Begin("slider-delete:" + id)
	defer settle()

	if err := m.repo.DeleteImage(id); err != nil {
		common.Log.Error().Err(err).Str("image", id).Msg("error deleting slider image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete image"})
		return
	}
	storage.RemoveURL(m.blobs, img.ImageURL)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
