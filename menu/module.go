package menu

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cravings/auth"
	"cravings/common"
	"cravings/content"
	"cravings/models"
	"cravings/storage"
)

// Module serves the menu tree and its admin mutations.
type Module struct {
	store   *Store
	blobs   storage.Blob
	svc     *auth.Service
	tracker *content.Tracker
}

func NewModule(db *gorm.DB, blobs storage.Blob, svc *auth.Service, tracker *content.Tracker) *Module {
	return &Module{
		store:   NewStore(db),
		blobs:   blobs,
		svc:     svc,
		tracker: tracker,
	}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/menu", m.getTree)

	adminGroup := router.Group("/api/menu")
	adminGroup.Use(auth.RequireAdmin(m.svc))
	{
		adminGroup.POST("/sections", m.createSection)
		adminGroup.PATCH("/sections/:id", m.updateSection)
		adminGroup.DELETE("/sections/:id", m.deleteSection)
		adminGroup.POST("/sections/:id/items", m.createItem)
		adminGroup.PATCH("/items/:id", m.updateItem)
		adminGroup.DELETE("/items/:id", m.deleteItem)
		adminGroup.POST("/items/:id/images", m.uploadItemImage)
		adminGroup.DELETE("/item-images/:id", m.deleteItemImage)
	}
}

func (m *Module) getTree(c *gin.Context) {
	tree, err := m.store.SectionTree()
	if err != nil {
		common.Log.Error().Err(err).Msg("error loading menu tree")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load menu"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": tree})
}

func (m *Module) createSection(c *gin.Context) {
	var request struct {
		Label        string `json:"label" binding:"required"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}

	settle := m.tracker.Begin("menu-section-create")
	defer settle()

	section := models.MenuSection{
		Label:        request.Label,
		DisplayOrder: request.DisplayOrder,
		IsActive:     true,
	}
	if err := m.store.CreateSection(&section); err != nil {
		common.Log.Error().Err(err).Msg("error creating menu section")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create section"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section})
}

func (m *Module) updateSection(c *gin.Context) {
	var request struct {
		Label        *string `json:"label"`
		DisplayOrder *int    `json:"display_order"`
		IsActive     *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	updates := map[string]any{}
	if request.Label != nil {
		updates["label"] = *request.Label
	}
	if request.DisplayOrder != nil {
		updates["display_order"] = *request.DisplayOrder
	}
	if request.IsActive != nil {
		updates["is_active"] = *request.IsActive
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := m.store.UpdateSection(c.Param("id"), updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update section"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) deleteSection(c *gin.Context) {
	settle := m.tracker.Begin("menu-section-delete")
	defer settle()

	if err := m.store.DeleteSection(c.Param("id")); err != nil {
		common.Log.Error().Err(err).Str("section", c.Param("id")).Msg("error deleting menu section")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete section"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) createItem(c *gin.Context) {
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil || item.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	settle := m.tracker.Begin("menu-item-create")
	defer settle()

	item.ID = ""
	item.SectionID = c.Param("id")
	if err := m.store.CreateItem(&item); err != nil {
		common.Log.Error().Err(err).Msg("error creating menu item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (m *Module) updateItem(c *gin.Context) {
	var request struct {
		Field string `json:"field" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field is required"})
		return
	}
	if _, ok := editableItemColumns[request.Field]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown field"})
		return
	}

	settle := m.tracker.Begin("menu-item-update")
	defer settle()

	if err := m.store.UpdateItemField(c.Param("id"), request.Field, request.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) deleteItem(c *gin.Context) {
	settle := m.tracker.Begin("menu-item-delete")
	defer settle()

	if err := m.store.DeleteItem(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) uploadItemImage(c *gin.Context) {
	itemID := c.Param("id")
	if _, err := m.store.GetItem(itemID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load item"})
		return
	}

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

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer src.Close()

	settle := m.tracker.Begin("menu-image-upload")
	defer settle()

	path := storage.ImagePath("menu-items", contentType)
	url, err := m.blobs.Upload(path, src, contentType)
	if err != nil {
		common.Log.Error().Err(err).Str("item", itemID).Msg("menu image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	img := models.MenuItemImage{
		MenuItemID: itemID,
		ImageURL:   url,
		AltText:    c.PostForm("alt_text"),
	}
	if err := m.store.InsertItemImage(&img); err != nil {
		if rmErr := m.blobs.Remove(path); rmErr != nil {
			common.Log.Warn().Err(rmErr).Str("path", path).Msg("could not clean up blob after failed insert")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save image"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": img})
}

func (m *Module) deleteItemImage(c *gin.Context) {
	id := c.Param("id")

	img, err := m.store.GetItemImage(id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load image"})
		return
	}

	settle := m.tracker.Begin("menu-image-delete")
	defer settle()

	if err := m.store.DeleteItemImage(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete image"})
		return
	}
	storage.RemoveURL(m.blobs, img.ImageURL)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
