package content

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cravings/models"
)

// ErrNotFound marks an absent row. For content blocks this is expected
// steady state, not a failure.
var ErrNotFound = errors.New("content not found")

// Repository is the row-store contract consumed by the editable
// components.
type Repository interface {
	FetchBlock(componentName, blockKey string) (string, error)
	UpsertBlock(componentName, blockKey, content string) error

	FetchImages(componentName string) ([]models.SliderImage, error)
	FetchImage(id string) (models.SliderImage, error)
	InsertImage(img *models.SliderImage) error
	UpdateImageAlt(id, altText string) error
	DeleteImage(id string) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FetchBlock(componentName, blockKey string) (string, error) {
	var block models.ContentBlock
	err := r.db.Where("component_name = ? AND block_key = ?", componentName, blockKey).
		First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return block.Content, nil
}

// UpsertBlock writes content keyed on the composite (component_name,
// block_key); the row is created implicitly on first save.
func (r *gormRepository) UpsertBlock(componentName, blockKey, content string) error {
	block := models.ContentBlock{
		ComponentName: componentName,
		BlockKey:      blockKey,
		Content:       content,
		ContentType:   "text",
		UpdatedAt:     time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "component_name"}, {Name: "block_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content", "content_type", "updated_at",
		}),
	}).Create(&block).Error
}

func (r *gormRepository) FetchImages(componentName string) ([]models.SliderImage, error) {
	var images []models.SliderImage
	err := r.db.Where("component_name = ?", componentName).
		Order("display_order ASC").
		Find(&images).Error
	return images, err
}

func (r *gormRepository) FetchImage(id string) (models.SliderImage, error) {
	var img models.SliderImage
	err := r.db.Where("id = ?", id).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return img, ErrNotFound
	}
	return img, err
}

func (r *gormRepository) InsertImage(img *models.SliderImage) error {
	return r.db.Create(img).Error
}

func (r *gormRepository) UpdateImageAlt(id, altText string) error {
	return r.db.Model(&models.SliderImage{}).
		Where("id = ?", id).
		Update("alt_text", altText).Error
}

func (r *gormRepository) DeleteImage(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.SliderImage{}).Error
}
