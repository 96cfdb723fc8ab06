package menu

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"cravings/models"
)

var ErrNotFound = errors.New("menu record not found")

// Section is one node of the menu tree: the section row plus its
// ordered items, each carrying its own images.
type Section struct {
	models.MenuSection
	Items []Item `json:"items"`
}

type Item struct {
	models.MenuItem
	Images []models.MenuItemImage `json:"images"`
}

// Store is the persistence layer for the three-level menu hierarchy.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SectionTree loads every active section with its items. Item images
// are fetched per item rather than through a batch join; the menu is
// small enough that the extra queries never matter.
func (s *Store) SectionTree() ([]Section, error) {
	var rows []models.MenuSection
	err := s.db.Where("is_active = ?", true).
		Order("display_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tree := make([]Section, 0, len(rows))
	for _, row := range rows {
		items, err := s.sectionItems(row.ID)
		if err != nil {
			return nil, err
		}
		tree = append(tree, Section{MenuSection: row, Items: items})
	}
	return tree, nil
}

func (s *Store) sectionItems(sectionID string) ([]Item, error) {
	var rows []models.MenuItem
	err := s.db.Where("section_id = ?", sectionID).
		Order("display_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		var images []models.MenuItemImage
		err := s.db.Where("menu_item_id = ?", row.ID).
			Order("display_order ASC").
			Find(&images).Error
		if err != nil {
			return nil, err
		}
		items = append(items, Item{MenuItem: row, Images: images})
	}
	return items, nil
}

func (s *Store) CreateSection(section *models.MenuSection) error {
	return s.db.Create(section).Error
}

func (s *Store) UpdateSection(id string, updates map[string]any) error {
	updates["updated_at"] = time.Now()
	return s.db.Model(&models.MenuSection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteSection removes the section's item images, its items, and then
// the section itself, in that order. The three deletes are not one
// transaction spanning a remote store in the original design; here they
// share one local transaction so a parent-delete failure cannot leave
// the children half gone.
func (s *Store) DeleteSection(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var itemIDs []string
		err := tx.Model(&models.MenuItem{}).
			Where("section_id = ?", id).
			Pluck("id", &itemIDs).Error
		if err != nil {
			return err
		}
		if len(itemIDs) > 0 {
			if err := tx.Where("menu_item_id IN ?", itemIDs).
				Delete(&models.MenuItemImage{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("section_id = ?", id).
			Delete(&models.MenuItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.MenuSection{}).Error
	})
}

func (s *Store) GetItem(id string) (models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return item, ErrNotFound
	}
	return item, err
}

func (s *Store) CreateItem(item *models.MenuItem) error {
	return s.db.Create(item).Error
}

// UpdateItemField writes a single column; leaf edits go through here so
// the editor can revert precisely on failure.
func (s *Store) UpdateItemField(id, column string, value any) error {
	return s.db.Model(&models.MenuItem{}).
		Where("id = ?", id).
		Updates(map[string]any{column: value, "updated_at": time.Now()}).Error
}

func (s *Store) DeleteItem(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_item_id = ?", id).
			Delete(&models.MenuItemImage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.MenuItem{}).Error
	})
}

func (s *Store) InsertItemImage(img *models.MenuItemImage) error {
	return s.db.Create(img).Error
}

func (s *Store) GetItemImage(id string) (models.MenuItemImage, error) {
	var img models.MenuItemImage
	err := s.db.Where("id = ?", id).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return img, ErrNotFound
	}
	return img, err
}

func (s *Store) DeleteItemImage(id string) error {
	return s.db.Where("id = ?", id).Delete(&models.MenuItemImage{}).Error
}
