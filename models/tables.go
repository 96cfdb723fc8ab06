package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the authenticated account row. The site has exactly one
// meaningful role distinction: admin or not.
type Profile struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"default:user" json:"role"` // "admin" | "user"
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Profile) IsAdmin() bool {
	return p.Role == "admin"
}

// ContentBlock holds one editable text snippet, addressed by the
// (component_name, block_key) pair. At most one row per pair; writes go
// through an upsert on that composite key.
type ContentBlock struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	ComponentName string    `gorm:"not null;uniqueIndex:idx_component_block" json:"component_name"`
	BlockKey      string    `gorm:"not null;uniqueIndex:idx_component_block" json:"block_key"`
	Content       string    `gorm:"type:text" json:"content"`
	ContentType   string    `gorm:"default:text" json:"content_type"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (b *ContentBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// SliderImage belongs to one named slider component. Display order is
// sortable ascending but need not be contiguous or unique.
type SliderImage struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	ComponentName string    `gorm:"not null;index" json:"component_name"`
	ImageURL      string    `gorm:"not null" json:"image_url"`
	AltText       string    `json:"alt_text"`
	DisplayOrder  int       `json:"display_order"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *SliderImage) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// MenuSection owns ordered MenuItems, which in turn own ordered images.
type MenuSection struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Label        string    `gorm:"not null" json:"label"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *MenuSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type MenuItem struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	SectionID    string    `gorm:"not null;index" json:"section_id"`
	Title        string    `gorm:"not null" json:"title"`
	CustomID     string    `json:"custom_id,omitempty"`
	DisplayOrder int       `json:"display_order"`
	Soup         string    `gorm:"type:text" json:"soup,omitempty"`
	Salads       string    `gorm:"type:text" json:"salads,omitempty"`
	Hot          string    `gorm:"type:text" json:"hot,omitempty"`
	Desserts     string    `gorm:"type:text" json:"desserts,omitempty"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (i *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type MenuItemImage struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	MenuItemID   string    `gorm:"not null;index" json:"menu_item_id"`
	ImageURL     string    `gorm:"not null" json:"image_url"`
	AltText      string    `json:"alt_text"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

func (i *MenuItemImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// GalleryEvent owns ordered EventImages. Tags are stored as a
// comma-separated list; Category is free text.
type GalleryEvent struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	EventName        string    `gorm:"not null" json:"event_name"`
	Category         string    `gorm:"index" json:"category"`
	EventDate        time.Time `json:"event_date"`
	Location         string    `json:"location,omitempty"`
	ClientName       string    `json:"client_name,omitempty"`
	Description      string    `gorm:"type:text" json:"description,omitempty"`
	FeaturedImageURL string    `json:"featured_image_url,omitempty"`
	Tags             string    `json:"-"`
	IsActive         bool      `gorm:"default:true;index" json:"is_active"`
	DisplayOrder     int       `json:"display_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (e *GalleryEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e *GalleryEvent) TagList() []string {
	if e.Tags == "" {
		return nil
	}
	parts := strings.Split(e.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func (e *GalleryEvent) SetTagList(tags []string) {
	e.Tags = strings.Join(tags, ",")
}

type EventImage struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	EventID      string    `gorm:"not null;index" json:"event_id"`
	Title        string    `json:"title"`
	ImageURL     string    `gorm:"not null" json:"image_url"`
	AltText      string    `json:"alt_text,omitempty"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

func (i *EventImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type BlogPost struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"not null" json:"title"`
	Slug             string    `gorm:"unique;not null;index" json:"slug"`
	Excerpt          string    `gorm:"type:text" json:"excerpt,omitempty"`
	Content          string    `gorm:"type:text" json:"content"`
	Author           string    `json:"author"`
	PublishedDate    time.Time `json:"published_date"`
	ReadTime         string    `json:"read_time,omitempty"`
	Category         string    `gorm:"index" json:"category,omitempty"`
	FeaturedImageURL string    `json:"featured_image_url,omitempty"`
	IsFeatured       bool      `gorm:"default:false" json:"is_featured"`
	IsPublished      bool      `gorm:"default:false;index" json:"is_published"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p *BlogPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type BlogTag struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"unique;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *BlogTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type BlogPostTag struct {
	PostID string `gorm:"primaryKey" json:"post_id"`
	TagID  string `gorm:"primaryKey" json:"tag_id"`
}
