package gallery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cravings/auth"
	"cravings/common"
	"cravings/content"
	"cravings/models"
	"cravings/storage"
)

// Module serves the public gallery and its admin mutations.
type Module struct {
	service *Service
	svc     *auth.Service
}

func NewModule(service *Service, svc *auth.Service) *Module {
	return &Module{service: service, svc: svc}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/gallery/events", m.listEvents)
	router.GET("/api/gallery/events/:id", m.getEvent)
	router.GET("/api/gallery/categories", m.categories)

	adminGroup := router.Group("/api/gallery")
	adminGroup.Use(auth.RequireAdmin(m.svc))
	{
		adminGroup.POST("/events", m.createEvent)
		adminGroup.PUT("/events/:id", m.updateEvent)
		adminGroup.DELETE("/events/:id", m.deleteEvent)
		adminGroup.POST("/events/:id/images", m.uploadImage)
		adminGroup.PATCH("/images/:id", m.updateImage)
		adminGroup.DELETE("/images/:id", m.deleteImage)
	}
}

func (m *Module) listEvents(c *gin.Context) {
	events, err := m.service.ListEvents()
	if err != nil {
		common.Log.Error().Err(err).Msg("error loading gallery events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (m *Module) getEvent(c *gin.Context) {
	event, err := m.service.GetEvent(c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (m *Module) categories(c *gin.Context) {
	categories, err := m.service.Categories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (m *Module) createEvent(c *gin.Context) {
	var in EventInput
	if err := c.ShouldBindJSON(&in); err != nil || in.EventName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_name is required"})
		return
	}

	event, err := m.service.CreateEvent(auth.SessionToken(c), in)
	if err != nil {
		m.writeMutationError(c, err, "failed to create event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (m *Module) updateEvent(c *gin.Context) {
	var in EventInput
	if err := c.ShouldBindJSON(&in); err != nil || in.EventName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_name is required"})
		return
	}

	event, err := m.service.UpdateEvent(auth.SessionToken(c), c.Param("id"), in)
	if err != nil {
		m.writeMutationError(c, err, "failed to update event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (m *Module) deleteEvent(c *gin.Context) {
	if err := m.service.DeleteEvent(auth.SessionToken(c), c.Param("id")); err != nil {
		m.writeMutationError(c, err, "failed to delete event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) uploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer src.Close()

	img := models.EventImage{
		Title:   c.PostForm("title"),
		AltText: c.PostForm("alt_text"),
	}
	saved, err := m.service.UploadImage(
		auth.SessionToken(c), c.Param("id"), img,
		file.Header.Get("Content-Type"), file.Size, src,
	)
	if err != nil {
		var verr *storage.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		m.writeMutationError(c, err, "failed to upload image")
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": saved})
}

func (m *Module) updateImage(c *gin.Context) {
	var request struct {
		Title        *string `json:"title"`
		AltText      *string `json:"alt_text"`
		DisplayOrder *int    `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	updates := map[string]any{}
	if request.Title != nil {
		updates["title"] = *request.Title
	}
	if request.AltText != nil {
		updates["alt_text"] = *request.AltText
	}
	if request.DisplayOrder != nil {
		updates["display_order"] = *request.DisplayOrder
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := m.service.UpdateImage(auth.SessionToken(c), c.Param("id"), updates); err != nil {
		m.writeMutationError(c, err, "failed to update image")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) deleteImage(c *gin.Context) {
	if err := m.service.DeleteImage(auth.SessionToken(c), c.Param("id")); err != nil {
		m.writeMutationError(c, err, "failed to delete image")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) writeMutationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, content.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		common.Log.Error().Err(err).Msg(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
