package blog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cravings/auth"
	"cravings/common"
	"cravings/content"
)

const defaultPerPage = 9

// Module serves the public blog endpoints and the admin mutations.
type Module struct {
	service *Service
	svc     *auth.Service
}

func NewModule(service *Service, svc *auth.Service) *Module {
	return &Module{service: service, svc: svc}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/blog/posts", m.listPosts)
	router.GET("/api/blog/posts/:slug", m.getPost)
	router.GET("/api/blog/categories", m.categories)
	router.GET("/api/blog/tags", m.tags)

	adminGroup := router.Group("/api/blog")
	adminGroup.Use(auth.RequireAdmin(m.svc))
	{
		adminGroup.POST("/posts", m.createPost)
		adminGroup.PUT("/posts/:slug", m.updatePost)
		adminGroup.DELETE("/posts/:slug", m.deletePost)
	}
}

func (m *Module) listPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 || perPage > 50 {
		perPage = defaultPerPage
	}

	filter := ListFilter{
		Category:     c.Query("category"),
		Tag:          c.Query("tag"),
		Search:       c.Query("search"),
		FeaturedOnly: c.Query("featured") == "true",
		Page:         page,
		PerPage:      perPage,
	}

	posts, total, err := m.service.List(filter)
	if err != nil {
		common.Log.Error().Err(err).Msg("error listing blog posts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":    posts,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (m *Module) getPost(c *gin.Context) {
	post, err := m.service.GetBySlug(c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (m *Module) categories(c *gin.Context) {
	categories, err := m.service.Categories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (m *Module) tags(c *gin.Context) {
	tags, err := m.service.Tags()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tags"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (m *Module) createPost(c *gin.Context) {
	var in PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	post, err := m.service.Create(auth.SessionToken(c), in)
	if err != nil {
		m.writeMutationError(c, err, "failed to create post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (m *Module) updatePost(c *gin.Context) {
	var in PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	post, err := m.service.findBySlugAny(c.Param("slug"))
	if err != nil {
		m.writeMutationError(c, err, "failed to update post")
		return
	}

	updated, err := m.service.Update(auth.SessionToken(c), post.ID, in)
	if err != nil {
		m.writeMutationError(c, err, "failed to update post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": updated})
}

func (m *Module) deletePost(c *gin.Context) {
	post, err := m.service.findBySlugAny(c.Param("slug"))
	if err != nil {
		m.writeMutationError(c, err, "failed to delete post")
		return
	}

	if err := m.service.Delete(auth.SessionToken(c), post.ID); err != nil {
		m.writeMutationError(c, err, "failed to delete post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) writeMutationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, content.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
	case errors.Is(err, ErrTitleMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
	case errors.Is(err, ErrInvalidSlug):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
	default:
		common.Log.Error().Err(err).Msg(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
