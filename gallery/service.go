package gallery

import (
	"errors"
	"io"
	"time"

	"gorm.io/gorm"

	"cravings/auth"
	"cravings/common"
	"cravings/content"
	"cravings/models"
	"cravings/storage"
)

var ErrNotFound = errors.New("gallery event not found")

// Event is a gallery event with its ordered images and the tag list
// expanded from storage form.
type Event struct {
	models.GalleryEvent
	Tags   []string            `json:"tags"`
	Images []models.EventImage `json:"images"`
}

// EventInput carries the single-form create/update surface.
type EventInput struct {
	EventName        string    `json:"event_name"`
	Category         string    `json:"category"`
	EventDate        time.Time `json:"event_date"`
	Location         string    `json:"location"`
	ClientName       string    `json:"client_name"`
	Description      string    `json:"description"`
	FeaturedImageURL string    `json:"featured_image_url"`
	Tags             []string  `json:"tags"`
	IsActive         *bool     `json:"is_active"`
	DisplayOrder     int       `json:"display_order"`
}

// Service owns gallery events and their images. Every mutating method
// re-checks the caller's admin role against the profiles table rather
// than trusting whatever UI state produced the request.
type Service struct {
	db      *gorm.DB
	blobs   storage.Blob
	svc     *auth.Service
	tracker *content.Tracker
}

func NewService(db *gorm.DB, blobs storage.Blob, svc *auth.Service, tracker *content.Tracker) *Service {
	return &Service{db: db, blobs: blobs, svc: svc, tracker: tracker}
}

// ListEvents returns active events ordered by display order, newest
// event date breaking ties, each with its images.
func (s *Service) ListEvents() ([]Event, error) {
	var rows []models.GalleryEvent
	err := s.db.Where("is_active = ?", true).
		Order("display_order ASC").
		Order("event_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		images, err := s.eventImages(row.ID)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{GalleryEvent: row, Tags: row.TagList(), Images: images})
	}
	return events, nil
}

func (s *Service) GetEvent(id string) (Event, error) {
	var row models.GalleryEvent
	err := s.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, err
	}
	images, err := s.eventImages(row.ID)
	if err != nil {
		return Event{}, err
	}
	return Event{GalleryEvent: row, Tags: row.TagList(), Images: images}, nil
}

func (s *Service) eventImages(eventID string) ([]models.EventImage, error) {
	var images []models.EventImage
	err := s.db.Where("event_id = ?", eventID).
		Order("display_order ASC").
		Find(&images).Error
	return images, err
}

// Categories returns the distinct categories in use, with "All"
// prepended for the filter bar. Categories are free text, so the set
// grows as admins type new ones.
func (s *Service) Categories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.GalleryEvent{}).
		Where("is_active = ? AND category <> ''", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return append([]string{"All"}, categories...), nil
}

func (s *Service) requireAdmin(token string) error {
	if !s.svc.IsAdmin(token) {
		return content.ErrNotAdmin
	}
	return nil
}

func (s *Service) CreateEvent(token string, in EventInput) (Event, error) {
	if err := s.requireAdmin(token); err != nil {
		return Event{}, err
	}

	settle := s.tracker.Begin("gallery-event-create")
	defer settle()

	row := models.GalleryEvent{
		EventName:        in.EventName,
		Category:         in.Category,
		EventDate:        in.EventDate,
		Location:         in.Location,
		ClientName:       in.ClientName,
		Description:      in.Description,
		FeaturedImageURL: in.FeaturedImageURL,
		IsActive:         true,
		DisplayOrder:     in.DisplayOrder,
	}
	row.SetTagList(in.Tags)
	if in.IsActive != nil {
		row.IsActive = *in.IsActive
	}

	if err := s.db.Create(&row).Error; err != nil {
		return Event{}, err
	}
	return Event{GalleryEvent: row, Tags: row.TagList()}, nil
}

func (s *Service) UpdateEvent(token, id string, in EventInput) (Event, error) {
	if err := s.requireAdmin(token); err != nil {
		return Event{}, err
	}

	var row models.GalleryEvent
	err := s.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, err
	}

	settle := s.tracker.Begin("gallery-event-update")
	defer settle()

	row.EventName = in.EventName
	row.Category = in.Category
	row.EventDate = in.EventDate
	row.Location = in.Location
	row.ClientName = in.ClientName
	row.Description = in.Description
	row.FeaturedImageURL = in.FeaturedImageURL
	row.SetTagList(in.Tags)
	if in.IsActive != nil {
		row.IsActive = *in.IsActive
	}
	row.DisplayOrder = in.DisplayOrder
	row.UpdatedAt = time.Now()

	if err := s.db.Save(&row).Error; err != nil {
		return Event{}, err
	}
	return s.GetEvent(id)
}

// DeleteEvent removes the image rows and the event in one transaction,
// then best-effort-removes the blobs. A blob that survives earns a
// warning, nothing more.
func (s *Service) DeleteEvent(token, id string) error {
	if err := s.requireAdmin(token); err != nil {
		return err
	}

	images, err := s.eventImages(id)
	if err != nil {
		return err
	}

	settle := s.tracker.Begin("gallery-event-delete")
	defer settle()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).
			Delete(&models.EventImage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.GalleryEvent{}).Error
	})
	if err != nil {
		return err
	}

	for _, img := range images {
		storage.RemoveURL(s.blobs, img.ImageURL)
	}
	return nil
}

// UploadImage writes the blob first, then the row. A failed insert
// cleans up the orphaned blob so the list never references it.
func (s *Service) UploadImage(token, eventID string, img models.EventImage, contentType string, size int64, src io.Reader) (models.EventImage, error) {
	if err := s.requireAdmin(token); err != nil {
		return models.EventImage{}, err
	}
	if err := storage.ValidateImage(contentType, size); err != nil {
		return models.EventImage{}, err
	}
	if _, err := s.GetEvent(eventID); err != nil {
		return models.EventImage{}, err
	}

	settle := s.tracker.Begin("gallery-image-upload")
	defer settle()

	path := storage.ImagePath("gallery", contentType)
	url, err := s.blobs.Upload(path, src, contentType)
	if err != nil {
		return models.EventImage{}, err
	}

	img.ID = ""
	img.EventID = eventID
	img.ImageURL = url
	if err := s.db.Create(&img).Error; err != nil {
		if rmErr := s.blobs.Remove(path); rmErr != nil {
			common.Log.Warn().Err(rmErr).Str("path", path).Msg("could not clean up blob after failed insert")
		}
		return models.EventImage{}, err
	}
	return img, nil
}

func (s *Service) UpdateImage(token, id string, updates map[string]any) error {
	if err := s.requireAdmin(token); err != nil {
		return err
	}

	settle := s.tracker.Begin("gallery-image-update")
	defer settle()

	return s.db.Model(&models.EventImage{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Service) DeleteImage(token, id string) error {
	if err := s.requireAdmin(token); err != nil {
		return err
	}

	var img models.EventImage
	err := s.db.Where("id = ?", id).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	settle := s.tracker.Begin("gallery-image-delete")
	defer settle()

	if err := s.db.Where("id = ?", id).Delete(&models.EventImage{}).Error; err != nil {
		return err
	}
	storage.RemoveURL(s.blobs, img.ImageURL)
	return nil
}
