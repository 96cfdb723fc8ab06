package common

import (
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectDb opens the sqlite database named by the sqlite_db env var.
func ConnectDb() *gorm.DB {
	dbFile := os.Getenv("sqlite_db")
	if dbFile == "" {
		Log.Error().Msg("sqlite_db not set")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		Log.Error().Err(err).Str("file", dbFile).Msg("error opening sqlite db")
		return nil
	}
	Log.Info().Str("file", dbFile).Msg("opened sqlite db")
	return db
}
