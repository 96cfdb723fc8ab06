package database

import (
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cravings/common"
	"cravings/models"
)

func RunMigrations(db *gorm.DB) error {
	common.Log.Info().Msg("running database migrations")

	err := db.AutoMigrate(
		&models.Profile{},
		&models.ContentBlock{},
		&models.SliderImage{},
		&models.MenuSection{},
		&models.MenuItem{},
		&models.MenuItemImage{},
		&models.GalleryEvent{},
		&models.EventImage{},
		&models.BlogPost{},
		&models.BlogTag{},
		&models.BlogPostTag{},
	)
	if err != nil {
		common.Log.Error().Err(err).Msg("error running migrations")
		return err
	}

	common.Log.Info().Msg("migrations completed")
	return nil
}

// SeedAdmin creates the admin profile from ADMIN_EMAIL/ADMIN_PASSWORD if
// no profile with that email exists yet. A missing configuration is not
// an error; the site just runs without an editable admin.
func SeedAdmin(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		common.Log.Info().Msg("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing models.Profile
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		return err
	}

	profile := models.Profile{
		Email:        email,
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := db.Create(&profile).Error; err != nil {
		common.Log.Error().Err(err).Msg("error seeding admin profile")
		return err
	}

	common.Log.Info().Str("email", email).Msg("seeded admin profile")
	return nil
}
