package main

import (
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"cravings/admin"
	"cravings/auth"
	"cravings/blog"
	"cravings/cache"
	"cravings/common"
	"cravings/content"
	"cravings/database"
	"cravings/email"
	"cravings/gallery"
	"cravings/menu"
	"cravings/storage"
)

const sessionTTL = 24 * time.Hour * 7

func main() {
	if err := godotenv.Load(); err != nil {
		common.Log.Info().Msg("no .env file found, using environment")
	}

	db := common.ConnectDb()
	if db == nil {
		common.Log.Fatal().Msg("failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		common.Log.Fatal().Err(err).Msg("failed to run migrations")
	}
	if err := database.SeedAdmin(db); err != nil {
		common.Log.Fatal().Err(err).Msg("failed to seed admin profile")
	}

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		common.Log.Fatal().Msg("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("cravings-session", store))

	uploadsDir := os.Getenv("UPLOADS_DIR")
	if uploadsDir == "" {
		uploadsDir = "./uploads"
	}
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}
	blobs := storage.NewDisk(uploadsDir, baseURL)
	router.Static("/uploads", uploadsDir)

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "./cache-data"
	}
	rendered := cache.New(cacheDir)
	if err := rendered.ClearOld(24 * time.Hour); err != nil {
		common.Log.Warn().Err(err).Msg("could not sweep stale rendered-post cache")
	}

	svc := auth.NewService(db, sessionTTL)
	tracker := content.NewTracker()

	admin.NewModule(svc, tracker).RegisterRoutes(router)
	content.NewModule(db, blobs, svc, tracker).RegisterRoutes(router)
	menu.NewModule(db, blobs, svc, tracker).RegisterRoutes(router)

	galleryService := gallery.NewService(db, blobs, svc, tracker)
	gallery.NewModule(galleryService, svc).RegisterRoutes(router)

	blogService := blog.NewService(db, svc, rendered)
	blog.NewModule(blogService, svc).RegisterRoutes(router)

	email.NewModule(email.NewEmailService()).RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	common.Log.Info().Str("port", port).Msg("starting server")
	if err := router.Run(":" + port); err != nil {
		common.Log.Fatal().Err(err).Msg("failed to start server")
	}
}
