package blog

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cravings/auth"
	"cravings/cache"
	"cravings/content"
	"cravings/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(
		&models.Profile{},
		&models.BlogPost{},
		&models.BlogTag{},
		&models.BlogPostTag{},
	)
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Profile{
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         "admin",
	}).Error)

	svc := auth.NewService(db, time.Hour)
	session, err := svc.SignIn("admin@example.com", "secret")
	require.NoError(t, err)

	return NewService(db, svc, cache.New(t.TempDir())), session.Token
}

func createTestPost(t *testing.T, db *gorm.DB, title, category string, published bool) *models.BlogPost {
	t.Helper()
	post := &models.BlogPost{
		Title:         title,
		Slug:          generateSlug(title),
		Content:       "Some **markdown** content.",
		Category:      category,
		IsPublished:   published,
		PublishedDate: time.Now(),
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Testing 123", "testing-123"},
		{"Multiple   Spaces", "multiple-spaces"},
		{"Special@#Characters!", "specialcharacters"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, generateSlug(tt.input))
		})
	}
}

func TestCreatePost(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)

	post, err := service.Create(token, PostInput{
		Title:       "Catering a Summer Wedding",
		Content:     "## Menu planning\nStart early.",
		Category:    "Weddings",
		IsPublished: true,
		Tags:        "weddings, outdoor",
	})

	require.NoError(t, err)
	assert.Equal(t, "catering-a-summer-wedding", post.Slug)
	assert.False(t, post.PublishedDate.IsZero())
	assert.ElementsMatch(t, []string{"weddings", "outdoor"}, post.Tags)
}

func TestCreatePostRequiresTitle(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)

	_, err := service.Create(token, PostInput{Title: "   "})
	assert.ErrorIs(t, err, ErrTitleMissing)
}

func TestCreatePostRejectsDuplicateSlug(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)
	createTestPost(t, db, "Hello World", "News", true)

	_, err := service.Create(token, PostInput{Title: "Hello World"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreatePostRejectsMalformedSlug(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)

	for _, slug := range []string{"../../escape", "Hello-World", "spaced slug", "trailing-", "-leading", "dots.inside"} {
		_, err := service.Create(token, PostInput{
			Title:       "Escape Artist",
			Slug:        slug,
			Content:     "body",
			IsPublished: true,
		})
		assert.ErrorIs(t, err, ErrInvalidSlug, slug)
	}

	var count int64
	db.Model(&models.BlogPost{}).Count(&count)
	assert.Zero(t, count)

	// Nothing was written under (or outside) the cache directory.
	entries, err := os.ReadDir(service.rendered.Dir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestCreatePostAcceptsCustomSlug(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)

	post, err := service.Create(token, PostInput{
		Title:       "Any Title",
		Slug:        "hand-picked-slug-2",
		Content:     "body",
		IsPublished: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "hand-picked-slug-2", post.Slug)
}

func TestUpdatePostRejectsMalformedSlug(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)
	post := createTestPost(t, db, "Hello World", "News", true)

	_, err := service.Update(token, post.ID, PostInput{
		Title: "Hello World",
		Slug:  "../../escape",
	})

	assert.ErrorIs(t, err, ErrInvalidSlug)

	fetched, err := service.GetBySlug("hello-world")
	require.NoError(t, err)
	assert.Equal(t, "hello-world", fetched.Slug)
}

func TestMutationsRequireAdmin(t *testing.T) {
	db := setupTestDB()
	service, _ := newTestService(t, db)
	post := createTestPost(t, db, "Hello World", "News", true)

	_, err := service.Create("bogus", PostInput{Title: "X"})
	assert.ErrorIs(t, err, content.ErrNotAdmin)

	_, err = service.Update("", post.ID, PostInput{Title: "X"})
	assert.ErrorIs(t, err, content.ErrNotAdmin)

	err = service.Delete("bogus", post.ID)
	assert.ErrorIs(t, err, content.ErrNotAdmin)
}

func TestGetBySlugRendersMarkdown(t *testing.T) {
	db := setupTestDB()
	service, _ := newTestService(t, db)
	createTestPost(t, db, "Hello World", "News", true)

	post, err := service.GetBySlug("hello-world")

	require.NoError(t, err)
	assert.Contains(t, post.HTML, "<strong>markdown</strong>")
}

func TestGetBySlugSanitizesScripts(t *testing.T) {
	db := setupTestDB()
	service, _ := newTestService(t, db)
	post := createTestPost(t, db, "Hello World", "News", true)
	require.NoError(t, db.Model(post).
		Update("content", "Safe text <script>alert(1)</script> here").Error)

	fetched, err := service.GetBySlug("hello-world")

	require.NoError(t, err)
	assert.NotContains(t, fetched.HTML, "<script>")
	assert.Contains(t, fetched.HTML, "Safe text")
}

func TestGetBySlugServesCachedRendering(t *testing.T) {
	db := setupTestDB()
	service, _ := newTestService(t, db)
	post := createTestPost(t, db, "Hello World", "News", true)

	first, err := service.GetBySlug("hello-world")
	require.NoError(t, err)

	// A content change without a cache clear must not change the served
	// HTML until the cache entry ages out or is cleared.
	require.NoError(t, db.Model(post).Update("content", "Totally new.").Error)

	second, err := service.GetBySlug("hello-world")
	require.NoError(t, err)
	assert.Equal(t, first.HTML, second.HTML)
}

func TestUpdatePostClearsCachedRendering(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)
	post := createTestPost(t, db, "Hello World", "News", true)

	first, err := service.GetBySlug("hello-world")
	require.NoError(t, err)
	assert.Contains(t, first.HTML, "markdown")

	_, err = service.Update(token, post.ID, PostInput{
		Title:       "Hello World",
		Content:     "Completely rewritten.",
		IsPublished: true,
	})
	require.NoError(t, err)

	second, err := service.GetBySlug("hello-world")
	require.NoError(t, err)
	assert.Contains(t, second.HTML, "Completely rewritten.")
}

func TestGetBySlugSkipsDrafts(t *testing.T) {
	db := setupTestDB()
	service, _ := newTestService(t, db)
	createTestPost(t, db, "Draft Post", "News", false)

	_, err := service.GetBySlug("draft-post")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = service.findBySlugAny("draft-post")
	assert.NoError(t, err)
}

func TestListFilters(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)

	createTestPost(t, db, "Wedding Menus", "Weddings", true)
	createTestPost(t, db, "Office Lunches", "Corporate", true)
	createTestPost(t, db, "Unpublished Draft", "Weddings", false)

	featured := createTestPost(t, db, "Seasonal Produce", "Tips", true)
	require.NoError(t, db.Model(featured).Update("is_featured", true).Error)

	_, err := service.Update(token, featured.ID, PostInput{
		Title:       "Seasonal Produce",
		Content:     "Eat what grows now.",
		Category:    "Tips",
		IsFeatured:  true,
		IsPublished: true,
		Tags:        "produce",
	})
	require.NoError(t, err)

	t.Run("published only", func(t *testing.T) {
		posts, total, err := service.List(ListFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, posts, 3)
	})

	t.Run("category", func(t *testing.T) {
		posts, total, err := service.List(ListFilter{Category: "Weddings"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, posts, 1)
		assert.Equal(t, "Wedding Menus", posts[0].Title)
	})

	t.Run("category All is a no-op", func(t *testing.T) {
		_, total, err := service.List(ListFilter{Category: "All"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})

	t.Run("featured", func(t *testing.T) {
		posts, _, err := service.List(ListFilter{FeaturedOnly: true})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "Seasonal Produce", posts[0].Title)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		posts, _, err := service.List(ListFilter{Search: "OFFICE"})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "Office Lunches", posts[0].Title)
	})

	t.Run("tag", func(t *testing.T) {
		posts, _, err := service.List(ListFilter{Tag: "produce"})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "Seasonal Produce", posts[0].Title)
	})

	t.Run("pagination", func(t *testing.T) {
		posts, total, err := service.List(ListFilter{Page: 2, PerPage: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, posts, 1)
	})
}

func TestUpdatePostRegeneratesSlug(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)
	post := createTestPost(t, db, "Hello World", "News", true)

	updated, err := service.Update(token, post.ID, PostInput{
		Title:       "Hello Again",
		Content:     post.Content,
		IsPublished: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "hello-again", updated.Slug)

	_, err = service.GetBySlug("hello-again")
	assert.NoError(t, err)
}

func TestUpdatePostSlugConflict(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)
	createTestPost(t, db, "First Post", "News", true)
	second := createTestPost(t, db, "Second Post", "News", true)

	_, err := service.Update(token, second.ID, PostInput{
		Title: "First Post",
	})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestDeletePostRemovesTagLinks(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)

	post, err := service.Create(token, PostInput{
		Title:       "Tagged Post",
		Content:     "body",
		IsPublished: true,
		Tags:        "one, two",
	})
	require.NoError(t, err)

	require.NoError(t, service.Delete(token, post.ID))

	_, err = service.GetBySlug(post.Slug)
	assert.ErrorIs(t, err, ErrNotFound)

	var links int64
	db.Model(&models.BlogPostTag{}).Count(&links)
	assert.Zero(t, links)
}

func TestCategoriesAndTags(t *testing.T) {
	db := setupTestDB()
	service, token := newTestService(t, db)

	createTestPost(t, db, "A", "Weddings", true)
	createTestPost(t, db, "B", "Tips", true)
	createTestPost(t, db, "C", "Hidden", false)

	_, err := service.Create(token, PostInput{
		Title:       "Tagged",
		IsPublished: true,
		Tags:        "zeta, alpha",
	})
	require.NoError(t, err)

	categories, err := service.Categories()
	require.NoError(t, err)
	assert.Equal(t, "All", categories[0])
	assert.NotContains(t, categories, "Hidden")

	tags, err := service.Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, tags)
}
