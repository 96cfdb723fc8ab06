package blog

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"cravings/auth"
	"cravings/cache"
	"cravings/common"
	"cravings/content"
	"cravings/models"
)

var (
	ErrNotFound     = errors.New("blog post not found")
	ErrSlugTaken    = errors.New("slug already in use")
	ErrTitleMissing = errors.New("title is required")
	ErrInvalidSlug  = errors.New("slug may only contain lowercase letters, numbers and hyphens")
)

// slugPattern matches the shape generateSlug produces. Caller-supplied
// slugs must match it too; slugs end up in URLs and cache file names,
// so anything else is rejected before any write.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// renderedCacheAge bounds how stale a cached rendering may get before
// it is re-rendered from source.
const renderedCacheAge = 24 * time.Hour

// Post is the public view of a post: the row, its tag names, and the
// rendered HTML on detail reads.
type Post struct {
	models.BlogPost
	Tags []string `json:"tags"`
	HTML string   `json:"html,omitempty"`
}

// PostInput is the admin create/update surface. Content is markdown;
// rendering happens on read.
type PostInput struct {
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	Excerpt          string    `json:"excerpt"`
	Content          string    `json:"content"`
	Author           string    `json:"author"`
	PublishedDate    time.Time `json:"published_date"`
	ReadTime         string    `json:"read_time"`
	Category         string    `json:"category"`
	FeaturedImageURL string    `json:"featured_image_url"`
	IsFeatured       bool      `json:"is_featured"`
	IsPublished      bool      `json:"is_published"`
	Tags             string    `json:"tags"` // comma separated
}

// ListFilter narrows the public post listing.
type ListFilter struct {
	Category     string
	Tag          string
	Search       string
	FeaturedOnly bool
	Page         int
	PerPage      int
}

// Service owns blog posts and their tags. Mutations re-check the
// caller's admin role against the profiles table on every call.
type Service struct {
	db       *gorm.DB
	svc      *auth.Service
	rendered *cache.Store
}

func NewService(db *gorm.DB, svc *auth.Service, rendered *cache.Store) *Service {
	return &Service{db: db, svc: svc, rendered: rendered}
}

// List returns published posts matching the filter, newest first, plus
// the total match count for pagination.
func (s *Service) List(filter ListFilter) ([]Post, int64, error) {
	query := s.db.Model(&models.BlogPost{}).Where("is_published = ?", true)

	if filter.Category != "" && filter.Category != "All" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ? OR LOWER(content) LIKE ?",
			like, like, like,
		)
	}
	if filter.Tag != "" {
		query = query.Where(
			"id IN (?)",
			s.db.Model(&models.BlogPostTag{}).
				Select("post_id").
				Where("tag_id IN (?)", s.db.Model(&models.BlogTag{}).
					Select("id").
					Where("name = ?", filter.Tag)),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PerPage).Limit(filter.PerPage)
	}

	var rows []models.BlogPost
	if err := query.Order("published_date DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, Post{BlogPost: row, Tags: s.postTags(row.ID)})
	}
	return posts, total, nil
}

// GetBySlug returns one published post with rendered HTML. Rendering
// goes through the file cache; a miss renders from markdown and
// repopulates it.
func (s *Service) GetBySlug(slug string) (Post, error) {
	var row models.BlogPost
	err := s.db.Where("slug = ? AND is_published = ?", slug, true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}

	html, found := s.rendered.Read(slug, renderedCacheAge)
	if !found {
		html = renderMarkdown(row.Content)
		// A cache write failure only costs a re-render next time.
		if err := s.rendered.Write(slug, html); err != nil {
			common.Log.Warn().Err(err).Str("slug", slug).Msg("could not cache rendered post")
		}
	}

	return Post{BlogPost: row, Tags: s.postTags(row.ID), HTML: html}, nil
}

// findBySlugAny looks a post up by slug regardless of publish state;
// used by the admin surface, which edits drafts too.
func (s *Service) findBySlugAny(slug string) (models.BlogPost, error) {
	var row models.BlogPost
	err := s.db.Where("slug = ?", slug).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, ErrNotFound
	}
	return row, err
}

func (s *Service) Categories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.BlogPost{}).
		Where("is_published = ? AND category <> ''", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return append([]string{"All"}, categories...), nil
}

func (s *Service) Tags() ([]string, error) {
	var names []string
	err := s.db.Model(&models.BlogTag{}).
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

func (s *Service) postTags(postID string) []string {
	var names []string
	err := s.db.Model(&models.BlogTag{}).
		Where("id IN (?)", s.db.Model(&models.BlogPostTag{}).
			Select("tag_id").
			Where("post_id = ?", postID)).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil
	}
	return names
}

func (s *Service) requireAdmin(token string) error {
	if !s.svc.IsAdmin(token) {
		return content.ErrNotAdmin
	}
	return nil
}

func (s *Service) Create(token string, in PostInput) (Post, error) {
	if err := s.requireAdmin(token); err != nil {
		return Post{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return Post{}, ErrTitleMissing
	}

	slug := in.Slug
	if slug == "" {
		slug = generateSlug(in.Title)
	} else if !slugPattern.MatchString(slug) {
		return Post{}, ErrInvalidSlug
	}
	if taken, err := s.slugTaken(slug, ""); err != nil {
		return Post{}, err
	} else if taken {
		return Post{}, ErrSlugTaken
	}

	row := models.BlogPost{
		Title:            in.Title,
		Slug:             slug,
		Excerpt:          in.Excerpt,
		Content:          in.Content,
		Author:           in.Author,
		PublishedDate:    in.PublishedDate,
		ReadTime:         in.ReadTime,
		Category:         in.Category,
		FeaturedImageURL: in.FeaturedImageURL,
		IsFeatured:       in.IsFeatured,
		IsPublished:      in.IsPublished,
	}
	if row.PublishedDate.IsZero() {
		row.PublishedDate = time.Now()
	}

	if err := s.db.Create(&row).Error; err != nil {
		return Post{}, err
	}
	if err := s.processPostTags(row.ID, in.Tags); err != nil {
		return Post{}, err
	}
	return Post{BlogPost: row, Tags: s.postTags(row.ID)}, nil
}

func (s *Service) Update(token, id string, in PostInput) (Post, error) {
	if err := s.requireAdmin(token); err != nil {
		return Post{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return Post{}, ErrTitleMissing
	}

	var row models.BlogPost
	err := s.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}

	oldSlug := row.Slug
	slug := in.Slug
	if slug == "" {
		slug = generateSlug(in.Title)
	} else if !slugPattern.MatchString(slug) {
		return Post{}, ErrInvalidSlug
	}
	if taken, err := s.slugTaken(slug, id); err != nil {
		return Post{}, err
	} else if taken {
		return Post{}, ErrSlugTaken
	}

	row.Title = in.Title
	row.Slug = slug
	row.Excerpt = in.Excerpt
	row.Content = in.Content
	row.Author = in.Author
	if !in.PublishedDate.IsZero() {
		row.PublishedDate = in.PublishedDate
	}
	row.ReadTime = in.ReadTime
	row.Category = in.Category
	row.FeaturedImageURL = in.FeaturedImageURL
	row.IsFeatured = in.IsFeatured
	row.IsPublished = in.IsPublished
	row.UpdatedAt = time.Now()

	if err := s.db.Save(&row).Error; err != nil {
		return Post{}, err
	}
	if err := s.processPostTags(row.ID, in.Tags); err != nil {
		return Post{}, err
	}

	s.rendered.Clear(oldSlug)
	s.rendered.Clear(slug)
	return Post{BlogPost: row, Tags: s.postTags(row.ID)}, nil
}

func (s *Service) Delete(token, id string) error {
	if err := s.requireAdmin(token); err != nil {
		return err
	}

	var row models.BlogPost
	err := s.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).
			Delete(&models.BlogPostTag{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.BlogPost{}).Error
	})
	if err != nil {
		return err
	}

	s.rendered.Clear(row.Slug)
	return nil
}

func (s *Service) slugTaken(slug, excludeID string) (bool, error) {
	query := s.db.Model(&models.BlogPost{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// processPostTags replaces the post's tag set with the comma-separated
// list, creating tags that do not exist yet.
func (s *Service) processPostTags(postID, tagsString string) error {
	if err := s.db.Where("post_id = ?", postID).
		Delete(&models.BlogPostTag{}).Error; err != nil {
		return err
	}
	if tagsString == "" {
		return nil
	}

	for _, tagName := range strings.Split(tagsString, ",") {
		tagName = strings.TrimSpace(tagName)
		if tagName == "" {
			continue
		}

		var tag models.BlogTag
		err := s.db.Where("name = ?", tagName).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.BlogTag{Name: tagName}
			if err := s.db.Create(&tag).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		link := models.BlogPostTag{PostID: postID, TagID: tag.ID}
		if err := s.db.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}
